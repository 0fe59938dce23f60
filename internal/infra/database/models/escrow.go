package models

import (
	"time"
)

type Escrow struct {
	Address         string    `json:"address" gorm:"primaryKey;type:text"`
	PropertyAddress string    `json:"propertyAddress" gorm:"type:text;index;not null"`
	Property        Property  `json:"-" gorm:"foreignKey:PropertyAddress;references:Address;constraint:OnDelete:CASCADE;"`
	MintID          string    `json:"mintId" gorm:"type:text;index;not null"`
	Seller          string    `json:"seller" gorm:"type:text;index;not null"`
	Buyer           *string   `json:"buyer,omitempty" gorm:"type:text"`
	Amount          uint64    `json:"amount" gorm:"not null"`
	SalePrice       uint64    `json:"salePrice" gorm:"not null"`
	State           int       `json:"state" gorm:"not null;default:0;index"`
	CDate           time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
