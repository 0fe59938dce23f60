package domain

// Requester identity propagation. Signature verification happens upstream in
// the account store; by the time a request reaches the core the identity in
// this header has already been checked.
const (
	RequesterCtxKey = "dl-requester"

	RequesterHeader = "dl-requester-address"
)

// RentCurrencyMintID is the ledger mint used for rent payouts. Rent vaults
// and holder rent balances live under this mint, share units under the
// property's own mint.
const RentCurrencyMintID = "mint:rent"
