package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/domain"
)

// PropertyRepository defines persistence/lookup for property records.
type PropertyRepository interface {
	Create(ctx context.Context, property domain.Property) error
	Get(ctx context.Context, address string) (domain.Property, error)
}

type RegistryUsecase struct {
	properties PropertyRepository
	ledger     Ledger
	atomic     Atomic
	signal     Signal
}

func NewRegistryUsecase(properties PropertyRepository, ledger Ledger, atomic Atomic, signal Signal) *RegistryUsecase {
	return &RegistryUsecase{
		properties: properties,
		ledger:     ledger,
		atomic:     atomic,
		signal:     signal,
	}
}

type InitializePropertyInput struct {
	Location    string
	Value       uint64
	MetadataURI string
	MintID      string
	Payer       string
}

// InitializeProperty creates the one property record for a mint and registers
// the record as the mint's authority, both in one transaction so a failed
// registration never leaves an orphaned record. The address is derived from
// the mint, so a second initialization for the same mint lands on the same
// address and fails with ErrDuplicateProperty.
func (uc *RegistryUsecase) InitializeProperty(ctx context.Context, input InitializePropertyInput) (domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Registry.Usecase.InitializeProperty")
	defer span.End()

	address, bump := deedledger.DeriveAddressWithBump([]byte("property"), []byte(input.MintID))

	property := domain.Property{
		Address:       address,
		Location:      input.Location,
		Value:         input.Value,
		MintID:        input.MintID,
		MetadataURI:   input.MetadataURI,
		AuthorityBump: bump,
		Payer:         input.Payer,
	}

	err := uc.atomic.RunInTx(ctx, func(ctx context.Context) error {
		if err := uc.properties.Create(ctx, property); err != nil {
			return err
		}
		return uc.ledger.RegisterMint(ctx, property.MintID, property.Address)
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "property initialization failed"))
		return domain.Property{}, err
	}

	uc.publish(ctx, deedledger.NewEvent(deedledger.EventPropertyInitialized, deedledger.PropertyInitialized{
		PropertyAddress: property.Address,
		Location:        property.Location,
		Value:           property.Value,
		MetadataURI:     property.MetadataURI,
	}))

	return property, nil
}

func (uc *RegistryUsecase) Get(ctx context.Context, address string) (domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Registry.Usecase.Get")
	defer span.End()

	property, err := uc.properties.Get(ctx, address)
	if err != nil {
		span.RecordError(err)
		return domain.Property{}, err
	}
	return property, nil
}

func (uc *RegistryUsecase) publish(ctx context.Context, event deedledger.Event) {
	if uc.signal == nil {
		return
	}
	if err := uc.signal.Publish(ctx, event); err != nil {
		slog.WarnContext(
			ctx, "failed to publish event",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
			slog.String("module", "registry"),
		)
	}
}
