package domain

// Property represents one tokenized real-world asset bound 1:1 to a share
// mint. MintID is immutable after creation.
type Property struct {
	Address       string `json:"address"`
	Location      string `json:"location"`
	Value         uint64 `json:"value"`
	MintID        string `json:"mintId"`
	MetadataURI   string `json:"metadataUri"`
	AuthorityBump uint8  `json:"authorityBump"`
	// Payer is the signer that created the record and owns it.
	Payer string `json:"payer"`
}

// RentVaultOwner is the balance identity holding undistributed rent for this
// property. The remainder of floor division stays here.
func (p Property) RentVaultOwner() string {
	return "vault:" + p.Address
}

// IsVaultOf reports whether owner is the rent vault controlled by record.
// The ledger uses this to accept a record's authority over its vault balance.
func IsVaultOf(owner, record string) bool {
	return owner == "vault:"+record
}
