package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deedledger/deedledger/internal/domain"
)

type escrowFixture struct {
	uc       *EscrowUsecase
	escrows  *mockEscrowRepo
	ledger   *mockLedger
	rail     *mockRail
	property domain.Property
}

func newEscrowFixture(t *testing.T) *escrowFixture {
	t.Helper()

	properties := newMockPropertyRepo()
	ledger := newMockLedger()
	escrows := newMockEscrowRepo()
	rail := newMockRail()

	property := setupProperty(t, properties, ledger, "mint:prop")
	shares := NewSharesUsecase(properties, ledger, nil)
	if err := shares.MintShares(context.Background(), property.Address, "0xSeller", 100); err != nil {
		t.Fatalf("seed mint failed: %v", err)
	}

	atomic := &mockAtomic{escrows: escrows, ledger: ledger, rail: rail}
	clock := fixedClock{now: time.Unix(1700000000, 0)}

	return &escrowFixture{
		uc:       NewEscrowUsecase(escrows, properties, ledger, rail, atomic, clock),
		escrows:  escrows,
		ledger:   ledger,
		rail:     rail,
		property: property,
	}
}

func TestListForSale(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	escrow, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 40, 500)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if !escrow.IsActive() || escrow.Buyer != nil {
		t.Fatalf("expected active escrow with no buyer, got %+v", escrow)
	}
	if got, _ := f.ledger.BalanceOf(ctx, "mint:prop", "0xSeller"); got != 60 {
		t.Fatalf("expected seller balance 60 got %d", got)
	}
	if got, _ := f.ledger.BalanceOf(ctx, "mint:prop", escrow.Address); got != 40 {
		t.Fatalf("expected escrow-held balance 40 got %d", got)
	}
}

func TestListForSaleInsufficientBalance(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	_, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 1000, 500)
	if !errors.Is(err, domain.ErrLedger) {
		t.Fatalf("expected LedgerError got %v", err)
	}

	if len(f.escrows.escrows) != 0 {
		t.Fatalf("expected no escrow persisted after failed hold")
	}
	if got, _ := f.ledger.BalanceOf(ctx, "mint:prop", "0xSeller"); got != 100 {
		t.Fatalf("expected seller balance untouched, got %d", got)
	}
}

func TestExecuteSale(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.rail.accounts["0xBuyer"] = 800

	escrow, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 40, 500)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if err := f.uc.ExecuteSale(ctx, escrow.Address, "0xBuyer", 500); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if got, _ := f.ledger.BalanceOf(ctx, "mint:prop", "0xBuyer"); got != 40 {
		t.Fatalf("expected buyer units 40 got %d", got)
	}
	if f.rail.accounts["0xSeller"] != 500 || f.rail.accounts["0xBuyer"] != 300 {
		t.Fatalf("unexpected value balances: %v", f.rail.accounts)
	}

	settled, _ := f.escrows.Get(ctx, escrow.Address)
	if settled.State != domain.EscrowStateSettled {
		t.Fatalf("expected settled state got %s", settled.State)
	}
	if settled.Buyer == nil || *settled.Buyer != "0xBuyer" {
		t.Fatalf("expected buyer recorded, got %+v", settled.Buyer)
	}
}

func TestExecuteSaleTwice(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.rail.accounts["0xBuyer"] = 1000

	escrow, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 40, 500)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if err := f.uc.ExecuteSale(ctx, escrow.Address, "0xBuyer", 500); err != nil {
		t.Fatalf("first execute failed: %v", err)
	}

	err = f.uc.ExecuteSale(ctx, escrow.Address, "0xBuyer", 500)
	if !errors.Is(err, domain.ErrEscrowInactive) {
		t.Fatalf("expected ErrEscrowInactive got %v", err)
	}
	if f.rail.accounts["0xSeller"] != 500 {
		t.Fatalf("second execute must not move value again, seller has %d", f.rail.accounts["0xSeller"])
	}
}

func TestExecuteSaleWrongPrice(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	f.rail.accounts["0xBuyer"] = 1000

	escrow, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 40, 500)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	err = f.uc.ExecuteSale(ctx, escrow.Address, "0xBuyer", 499)
	if !errors.Is(err, domain.ErrInvalidSalePrice) {
		t.Fatalf("expected ErrInvalidSalePrice got %v", err)
	}

	unchanged, _ := f.escrows.Get(ctx, escrow.Address)
	if !unchanged.IsActive() || unchanged.Amount != 40 {
		t.Fatalf("escrow must be unchanged after price mismatch: %+v", unchanged)
	}
	if f.rail.accounts["0xBuyer"] != 1000 {
		t.Fatalf("no value may move on price mismatch")
	}
}

func TestExecuteSaleRollsBackOnFailedLeg(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	// buyer has no funds, so the value leg fails after the state transition

	escrow, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 40, 500)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	err = f.uc.ExecuteSale(ctx, escrow.Address, "0xBuyer", 500)
	if !errors.Is(err, domain.ErrLedger) {
		t.Fatalf("expected LedgerError got %v", err)
	}

	after, _ := f.escrows.Get(ctx, escrow.Address)
	if !after.IsActive() {
		t.Fatalf("failed settlement must leave the escrow active, got %s", after.State)
	}
	if got, _ := f.ledger.BalanceOf(ctx, "mint:prop", escrow.Address); got != 40 {
		t.Fatalf("escrow-held units must be untouched, got %d", got)
	}
}

func TestCancelListing(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	escrow, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 40, 500)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if err := f.uc.CancelListing(ctx, escrow.Address, "0xSeller"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if got, _ := f.ledger.BalanceOf(ctx, "mint:prop", "0xSeller"); got != 100 {
		t.Fatalf("expected units returned to seller, got %d", got)
	}
	cancelled, _ := f.escrows.Get(ctx, escrow.Address)
	if cancelled.State != domain.EscrowStateCancelled {
		t.Fatalf("expected cancelled state got %s", cancelled.State)
	}

	err = f.uc.ExecuteSale(ctx, escrow.Address, "0xBuyer", 500)
	if !errors.Is(err, domain.ErrEscrowInactive) {
		t.Fatalf("cancelled escrow must not settle, got %v", err)
	}
}

func TestCancelListingNotSeller(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	escrow, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 40, 500)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	err = f.uc.CancelListing(ctx, escrow.Address, "0xMallory")
	if !errors.Is(err, domain.ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller got %v", err)
	}

	after, _ := f.escrows.Get(ctx, escrow.Address)
	if !after.IsActive() {
		t.Fatalf("escrow must stay active after rejected cancel")
	}
}

func TestListForSaleConcurrentListingsGetDistinctAddresses(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	// the fixture clock is frozen, so both listings share one timestamp
	first, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 10, 500)
	if err != nil {
		t.Fatalf("first list failed: %v", err)
	}
	second, err := f.uc.ListForSale(ctx, "0xSeller", f.property.Address, 10, 500)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}

	if first.Address == second.Address {
		t.Fatalf("expected distinct escrow addresses, both got %s", first.Address)
	}
	if len(f.escrows.escrows) != 2 {
		t.Fatalf("expected both escrows persisted, got %d", len(f.escrows.escrows))
	}
}
