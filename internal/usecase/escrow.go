package usecase

import (
	"context"
	"encoding/binary"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/domain"
)

// EscrowRepository defines persistence for escrow records. Resolve performs
// the Active → terminal transition and must do so at most once: a second
// resolve of the same escrow fails with ErrEscrowInactive even when racing.
type EscrowRepository interface {
	Create(ctx context.Context, escrow domain.Escrow) error
	Get(ctx context.Context, address string) (domain.Escrow, error)
	Resolve(ctx context.Context, address string, buyer *string, state domain.EscrowState) error
}

type EscrowUsecase struct {
	escrows    EscrowRepository
	properties PropertyRepository
	ledger     Ledger
	rail       ValueRail
	atomic     Atomic
	clock      Clock

	// sequence disambiguates listings created within one clock tick.
	sequence atomic.Uint64
}

func NewEscrowUsecase(
	escrows EscrowRepository,
	properties PropertyRepository,
	ledger Ledger,
	rail ValueRail,
	atomic Atomic,
	clock Clock,
) *EscrowUsecase {
	return &EscrowUsecase{
		escrows:    escrows,
		properties: properties,
		ledger:     ledger,
		rail:       rail,
		atomic:     atomic,
		clock:      clock,
	}
}

// ListForSale creates an active escrow and moves the units into the
// escrow-held balance in the same transaction. An insufficient seller balance
// surfaces as a LedgerError and nothing is persisted.
func (uc *EscrowUsecase) ListForSale(ctx context.Context, seller, propertyAddress string, amount, salePrice uint64) (domain.Escrow, error) {
	ctx, span := tracer.Start(ctx, "Escrow.Usecase.ListForSale")
	defer span.End()

	property, err := uc.properties.Get(ctx, propertyAddress)
	if err != nil {
		span.RecordError(err)
		return domain.Escrow{}, err
	}

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uc.sequence.Add(1))
	address := deedledger.DeriveAddressN(
		uint64(uc.clock.Now().UnixNano()),
		[]byte("escrow"), []byte(property.MintID), []byte(seller), seq[:],
	)

	escrow := domain.Escrow{
		Address:         address,
		PropertyAddress: property.Address,
		MintID:          property.MintID,
		Seller:          seller,
		Amount:          amount,
		SalePrice:       salePrice,
		State:           domain.EscrowStateActive,
	}

	err = uc.atomic.RunInTx(ctx, func(ctx context.Context) error {
		if err := uc.escrows.Create(ctx, escrow); err != nil {
			return err
		}
		return uc.ledger.Transfer(ctx, escrow.MintID, seller, escrow.Address, amount, domain.RecordAuthority(seller))
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "listing failed"))
		return domain.Escrow{}, err
	}

	return escrow, nil
}

// ExecuteSale settles an active escrow: value moves buyer → seller and the
// escrowed units move escrow → buyer, both inside one transaction. The price
// was pinned at listing time and is re-checked here so a stale listing cannot
// be executed at a different price. Any failed leg leaves the escrow active.
func (uc *EscrowUsecase) ExecuteSale(ctx context.Context, escrowAddress, buyer string, submittedPrice uint64) error {
	ctx, span := tracer.Start(ctx, "Escrow.Usecase.ExecuteSale")
	defer span.End()

	escrow, err := uc.escrows.Get(ctx, escrowAddress)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !escrow.IsActive() {
		return domain.ErrEscrowInactive
	}
	if escrow.SalePrice != submittedPrice {
		return domain.ErrInvalidSalePrice
	}

	err = uc.atomic.RunInTx(ctx, func(ctx context.Context) error {
		// Resolve re-checks Active under a row lock, so a concurrent
		// settlement of the same escrow loses here, before any movement.
		if err := uc.escrows.Resolve(ctx, escrow.Address, &buyer, domain.EscrowStateSettled); err != nil {
			return err
		}
		if err := uc.rail.TransferValue(ctx, buyer, escrow.Seller, escrow.SalePrice); err != nil {
			return err
		}
		return uc.ledger.Transfer(ctx, escrow.MintID, escrow.Address, buyer, escrow.Amount, domain.RecordAuthority(escrow.Address))
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "settlement failed"))
		return err
	}
	return nil
}

// CancelListing returns escrowed units to the seller and retires the escrow.
// Only the seller may cancel, and only while the escrow is still active.
func (uc *EscrowUsecase) CancelListing(ctx context.Context, escrowAddress, requester string) error {
	ctx, span := tracer.Start(ctx, "Escrow.Usecase.CancelListing")
	defer span.End()

	escrow, err := uc.escrows.Get(ctx, escrowAddress)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !escrow.IsActive() {
		return domain.ErrEscrowInactive
	}
	if escrow.Seller != requester {
		return domain.ErrNotSeller
	}

	err = uc.atomic.RunInTx(ctx, func(ctx context.Context) error {
		if err := uc.escrows.Resolve(ctx, escrow.Address, nil, domain.EscrowStateCancelled); err != nil {
			return err
		}
		return uc.ledger.Transfer(ctx, escrow.MintID, escrow.Address, escrow.Seller, escrow.Amount, domain.RecordAuthority(escrow.Address))
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "cancellation failed"))
		return err
	}
	return nil
}

func (uc *EscrowUsecase) Get(ctx context.Context, address string) (domain.Escrow, error) {
	ctx, span := tracer.Start(ctx, "Escrow.Usecase.Get")
	defer span.End()

	escrow, err := uc.escrows.Get(ctx, address)
	if err != nil {
		span.RecordError(err)
		return domain.Escrow{}, err
	}
	return escrow, nil
}
