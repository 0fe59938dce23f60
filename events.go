package deedledger

import (
	"time"
)

const (
	EventPropertyInitialized string = "deedledger.property.initialized"
	EventTokensMinted        string = "deedledger.shares.minted"
	EventRentDistributed     string = "deedledger.rent.distributed"
)

// Event is the envelope published on the event channel. Payload holds one of
// the typed event bodies below, keyed by Type.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type PropertyInitialized struct {
	PropertyAddress string `json:"propertyAddress"`
	Location        string `json:"location"`
	Value           uint64 `json:"value"`
	MetadataURI     string `json:"metadataUri"`
}

type TokensMinted struct {
	PropertyAddress string `json:"propertyAddress"`
	Amount          uint64 `json:"amount"`
}

type RentDistributed struct {
	PropertyAddress string `json:"propertyAddress"`
	TotalRent       uint64 `json:"totalRent"`
}

func NewEvent(eventType string, payload any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
