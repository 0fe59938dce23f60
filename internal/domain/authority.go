package domain

// Authority is the capability token authorizing a ledger movement. It is
// bound to a record's address: the property record signs for mints and rent
// vault transfers, the escrow record signs for escrowed units, and a plain
// holder signs for their own balance. The ledger checks the binding, the
// core never does.
type Authority struct {
	Record string `json:"record"`
}

func RecordAuthority(address string) Authority {
	return Authority{Record: address}
}
