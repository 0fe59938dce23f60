package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/deedledger/deedledger/internal/domain"
	"github.com/deedledger/deedledger/internal/infra/database"
	"github.com/deedledger/deedledger/internal/infra/database/models"
)

type EscrowRepository struct {
	db *gorm.DB
}

func NewEscrowRepository(db *gorm.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

func (r *EscrowRepository) Create(ctx context.Context, escrow domain.Escrow) error {
	record := models.Escrow{
		Address:         escrow.Address,
		PropertyAddress: escrow.PropertyAddress,
		MintID:          escrow.MintID,
		Seller:          escrow.Seller,
		Buyer:           escrow.Buyer,
		Amount:          escrow.Amount,
		SalePrice:       escrow.SalePrice,
		State:           int(escrow.State),
	}
	err := database.FromContext(ctx, r.db).Create(&record).Error
	return errors.Wrap(err, "failed to create escrow")
}

func (r *EscrowRepository) Get(ctx context.Context, address string) (domain.Escrow, error) {
	var record models.Escrow
	err := database.FromContext(ctx, r.db).
		Where("address = ?", address).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Escrow{}, domain.NotFoundError{Resource: "escrow"}
	}
	if err != nil {
		return domain.Escrow{}, errors.Wrap(err, "failed to read escrow")
	}
	return toDomainEscrow(record), nil
}

// Resolve flips an active escrow to its terminal state. The state guard in
// the WHERE clause makes the transition exactly-once: the second resolver
// matches no row and gets ErrEscrowInactive.
func (r *EscrowRepository) Resolve(ctx context.Context, address string, buyer *string, state domain.EscrowState) error {
	tx := database.FromContext(ctx, r.db)

	result := tx.Model(&models.Escrow{}).
		Where("address = ? AND state = ?", address, int(domain.EscrowStateActive)).
		Updates(map[string]any{"buyer": buyer, "state": int(state)})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to resolve escrow")
	}
	if result.RowsAffected == 0 {
		var record models.Escrow
		err := tx.Where("address = ?", address).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "escrow"}
		}
		if err != nil {
			return errors.Wrap(err, "failed to read escrow")
		}
		return domain.ErrEscrowInactive
	}
	return nil
}

func toDomainEscrow(record models.Escrow) domain.Escrow {
	return domain.Escrow{
		Address:         record.Address,
		PropertyAddress: record.PropertyAddress,
		MintID:          record.MintID,
		Seller:          record.Seller,
		Buyer:           record.Buyer,
		Amount:          record.Amount,
		SalePrice:       record.SalePrice,
		State:           domain.EscrowState(record.State),
	}
}
