package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// LedgerError wraps a rejection from the ledger service or the value rail.
// The core propagates these verbatim and never applies partial state.
type LedgerError struct {
	Op  string
	Err error
}

func (e LedgerError) Error() string {
	return fmt.Sprintf("ledger rejected %s: %v", e.Op, e.Err)
}

func (e LedgerError) Unwrap() error {
	return e.Err
}

func (e LedgerError) Is(target error) bool {
	_, ok := target.(LedgerError)
	if ok {
		return true
	}
	_, ok = target.(*LedgerError)
	return ok
}

// ErrLedger is the sentinel for ledger/value-rail rejections.
var ErrLedger = LedgerError{}

// Validation and state-machine errors. An operation failing with one of these
// leaves all records unmodified.
var (
	ErrDuplicateProperty   = errors.New("property already exists for mint")
	ErrEscrowInactive      = errors.New("escrow is not active")
	ErrInvalidSalePrice    = errors.New("sale price does not match escrow")
	ErrProposalVotingEnded = errors.New("proposal voting has ended")
	ErrDivisionByZero      = errors.New("no outstanding share units")
	ErrNotSeller           = errors.New("caller is not the escrow seller")
	ErrDuplicateHolder     = errors.New("holder list contains duplicates")
	ErrHolderListTooLong   = errors.New("holder list exceeds per-call limit")
)
