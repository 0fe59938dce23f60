package domain

type EscrowState int

const (
	EscrowStateActive EscrowState = iota
	EscrowStateSettled
	EscrowStateCancelled
)

func (s EscrowState) String() string {
	switch s {
	case EscrowStateActive:
		return "active"
	case EscrowStateSettled:
		return "settled"
	case EscrowStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Escrow holds share units in trust pending a matched buyer at a fixed price.
// Buyer is nil while the escrow is active. Settled and Cancelled are terminal;
// a resolved escrow is spent and never reused.
type Escrow struct {
	Address         string      `json:"address"`
	PropertyAddress string      `json:"propertyAddress"`
	MintID          string      `json:"mintId"`
	Seller          string      `json:"seller"`
	Buyer           *string     `json:"buyer,omitempty"`
	Amount          uint64      `json:"amount"`
	SalePrice       uint64      `json:"salePrice"`
	State           EscrowState `json:"state"`
}

func (e Escrow) IsActive() bool {
	return e.State == EscrowStateActive
}
