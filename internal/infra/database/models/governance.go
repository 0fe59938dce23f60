package models

import (
	"time"
)

type Proposal struct {
	Address         string    `json:"address" gorm:"primaryKey;type:text"`
	Proposer        string    `json:"proposer" gorm:"type:text;index"`
	PropertyAddress string    `json:"propertyAddress" gorm:"type:text;index;not null"`
	Property        Property  `json:"-" gorm:"foreignKey:PropertyAddress;references:Address;constraint:OnDelete:CASCADE;"`
	Text            string    `json:"text" gorm:"type:text"`
	VotesFor        uint64    `json:"votesFor" gorm:"not null;default:0"`
	VotesAgainst    uint64    `json:"votesAgainst" gorm:"not null;default:0"`
	EndTime         time.Time `json:"endTime" gorm:"type:timestamp with time zone;not null"`
	CDate           time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Ballot struct {
	ProposalAddress string    `json:"proposalAddress" gorm:"primaryKey;type:text"`
	Proposal        Proposal  `json:"-" gorm:"foreignKey:ProposalAddress;references:Address;constraint:OnDelete:CASCADE;"`
	Voter           string    `json:"voter" gorm:"primaryKey;type:text"`
	VoteFor         bool      `json:"voteFor" gorm:"not null"`
	Weight          uint64    `json:"weight" gorm:"not null"`
	CDate           time.Time `json:"cdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}
