package models

import (
	"time"
)

type Property struct {
	Address       string    `json:"address" gorm:"primaryKey;type:text"`
	Location      string    `json:"location" gorm:"type:text"`
	Value         uint64    `json:"value" gorm:"not null"`
	MintID        string    `json:"mintId" gorm:"type:text;uniqueIndex:property_mint,unique;not null"`
	MetadataURI   string    `json:"metadataUri" gorm:"type:text"`
	AuthorityBump uint8     `json:"authorityBump" gorm:"not null"`
	Payer         string    `json:"payer" gorm:"type:text;index"`
	CDate         time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
