package models

import (
	"time"
)

// Mint is the ledger's per-mint record: the registered minting authority and
// the authoritative total-supply counter.
type Mint struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	Authority string    `json:"authority" gorm:"type:text;not null"`
	Supply    uint64    `json:"supply" gorm:"not null;default:0"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Balance is one owner's holding of one mint. Rows exist only while the
// amount is positive; the positive rows of a mint are its holder index.
type Balance struct {
	MintID string `json:"mintId" gorm:"primaryKey;type:text"`
	Owner  string `json:"owner" gorm:"primaryKey;type:text;index"`
	Amount uint64 `json:"amount" gorm:"not null"`
}

// ValueAccount is a native-currency balance on the value rail.
type ValueAccount struct {
	Owner  string `json:"owner" gorm:"primaryKey;type:text"`
	Amount uint64 `json:"amount" gorm:"not null"`
}
