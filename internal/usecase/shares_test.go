package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/domain"
)

func setupProperty(t *testing.T, repo *mockPropertyRepo, ledger *mockLedger, mintID string) domain.Property {
	t.Helper()
	uc := NewRegistryUsecase(repo, ledger, &mockAtomic{}, nil)
	property, err := uc.InitializeProperty(context.Background(), InitializePropertyInput{MintID: mintID})
	if err != nil {
		t.Fatalf("setup property failed: %v", err)
	}
	return property
}

func TestMintShares(t *testing.T) {
	repo := newMockPropertyRepo()
	ledger := newMockLedger()
	signal := &mockSignal{}
	property := setupProperty(t, repo, ledger, "mint:a")

	uc := NewSharesUsecase(repo, ledger, signal)

	if err := uc.MintShares(context.Background(), property.Address, "0xAlice", 100); err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if got, _ := ledger.BalanceOf(context.Background(), "mint:a", "0xAlice"); got != 100 {
		t.Fatalf("expected balance 100 got %d", got)
	}
	if got, _ := ledger.TotalSupply(context.Background(), "mint:a"); got != 100 {
		t.Fatalf("expected supply 100 got %d", got)
	}

	if len(signal.events) != 1 || signal.events[0].Type != deedledger.EventTokensMinted {
		t.Fatalf("expected one TokensMinted event, got %v", signal.events)
	}
}

func TestMintSharesLedgerRejection(t *testing.T) {
	repo := newMockPropertyRepo()
	ledger := newMockLedger()
	signal := &mockSignal{}
	property := setupProperty(t, repo, ledger, "mint:a")

	ledger.mintErr = domain.LedgerError{Op: "mint", Err: errors.New("not authorized")}
	uc := NewSharesUsecase(repo, ledger, signal)

	err := uc.MintShares(context.Background(), property.Address, "0xAlice", 100)
	if !errors.Is(err, domain.ErrLedger) {
		t.Fatalf("expected LedgerError got %v", err)
	}
	if len(signal.events) != 0 {
		t.Fatalf("expected no event on rejection")
	}
}

func TestTransferSharesNoEvent(t *testing.T) {
	repo := newMockPropertyRepo()
	ledger := newMockLedger()
	signal := &mockSignal{}
	property := setupProperty(t, repo, ledger, "mint:a")

	uc := NewSharesUsecase(repo, ledger, signal)
	if err := uc.MintShares(context.Background(), property.Address, "0xAlice", 100); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	signal.events = nil

	if err := uc.TransferShares(context.Background(), property.Address, "0xAlice", "0xBob", 40); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if got, _ := ledger.BalanceOf(context.Background(), "mint:a", "0xBob"); got != 40 {
		t.Fatalf("expected bob balance 40 got %d", got)
	}
	if len(signal.events) != 0 {
		t.Fatalf("peer transfer must not emit events")
	}
}

func TestTransferSharesInsufficientBalance(t *testing.T) {
	repo := newMockPropertyRepo()
	ledger := newMockLedger()
	property := setupProperty(t, repo, ledger, "mint:a")

	uc := NewSharesUsecase(repo, ledger, nil)

	err := uc.TransferShares(context.Background(), property.Address, "0xAlice", "0xBob", 1)
	if !errors.Is(err, domain.ErrLedger) {
		t.Fatalf("expected LedgerError got %v", err)
	}
}
