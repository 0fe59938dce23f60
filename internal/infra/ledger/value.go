package ledger

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deedledger/deedledger/internal/domain"
	"github.com/deedledger/deedledger/internal/infra/database"
	"github.com/deedledger/deedledger/internal/infra/database/models"
)

// ValueRail moves native currency between accounts, sharing the database
// (and any surrounding transaction) with the ledger.
type ValueRail struct {
	db *gorm.DB
}

func NewValueRail(db *gorm.DB) *ValueRail {
	return &ValueRail{db: db}
}

func (v *ValueRail) TransferValue(ctx context.Context, from, to string, amount uint64) error {
	run := func(tx *gorm.DB) error {
		var account models.ValueAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner = ?", from).
			Take(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && account.Amount < amount) {
			return domain.LedgerError{Op: "value transfer", Err: errors.New("insufficient funds")}
		}
		if err != nil {
			return errors.Wrap(err, "failed to lock account")
		}

		err = tx.Model(&models.ValueAccount{}).
			Where("owner = ?", from).
			Update("amount", gorm.Expr("amount - ?", amount)).Error
		if err != nil {
			return errors.Wrap(err, "failed to debit account")
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}},
			DoUpdates: clause.Assignments(map[string]any{"amount": gorm.Expr("value_accounts.amount + ?", amount)}),
		}).Create(&models.ValueAccount{Owner: to, Amount: amount}).Error
		return errors.Wrap(err, "failed to credit account")
	}

	return database.FromContext(ctx, v.db).Transaction(run)
}

// Deposit credits an account. Sale settlement never calls this; it exists so
// operators can fund buyer accounts and rent vaults.
func (v *ValueRail) Deposit(ctx context.Context, owner string, amount uint64) error {
	err := database.FromContext(ctx, v.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}},
		DoUpdates: clause.Assignments(map[string]any{"amount": gorm.Expr("value_accounts.amount + ?", amount)}),
	}).Create(&models.ValueAccount{Owner: owner, Amount: amount}).Error
	return errors.Wrap(err, "failed to credit account")
}
