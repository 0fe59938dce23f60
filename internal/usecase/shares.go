package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/domain"
)

type SharesUsecase struct {
	properties PropertyRepository
	ledger     Ledger
	signal     Signal
}

func NewSharesUsecase(properties PropertyRepository, ledger Ledger, signal Signal) *SharesUsecase {
	return &SharesUsecase{
		properties: properties,
		ledger:     ledger,
		signal:     signal,
	}
}

// MintShares asks the ledger to mint new units of the property's mint into
// the target balance, with the property record as minting authority. Whether
// the requester may act through that authority is the ledger's call, not ours.
func (uc *SharesUsecase) MintShares(ctx context.Context, propertyAddress, to string, amount uint64) error {
	ctx, span := tracer.Start(ctx, "Shares.Usecase.MintShares")
	defer span.End()

	property, err := uc.properties.Get(ctx, propertyAddress)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = uc.ledger.Mint(ctx, property.MintID, to, amount, domain.RecordAuthority(property.Address))
	if err != nil {
		span.RecordError(errors.Wrap(err, "mint rejected"))
		return err
	}

	uc.publish(ctx, deedledger.NewEvent(deedledger.EventTokensMinted, deedledger.TokensMinted{
		PropertyAddress: property.Address,
		Amount:          amount,
	}))

	return nil
}

// TransferShares moves units directly between two holders, authorized by the
// sending holder. Deliberately not notified: only escrow and rent flows emit
// events.
func (uc *SharesUsecase) TransferShares(ctx context.Context, propertyAddress, from, to string, amount uint64) error {
	ctx, span := tracer.Start(ctx, "Shares.Usecase.TransferShares")
	defer span.End()

	property, err := uc.properties.Get(ctx, propertyAddress)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = uc.ledger.Transfer(ctx, property.MintID, from, to, amount, domain.RecordAuthority(from))
	if err != nil {
		span.RecordError(errors.Wrap(err, "transfer rejected"))
		return err
	}
	return nil
}

func (uc *SharesUsecase) publish(ctx context.Context, event deedledger.Event) {
	if uc.signal == nil {
		return
	}
	if err := uc.signal.Publish(ctx, event); err != nil {
		slog.WarnContext(
			ctx, "failed to publish event",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
			slog.String("module", "shares"),
		)
	}
}
