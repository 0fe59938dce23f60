package ledger

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deedledger/deedledger/internal/domain"
	"github.com/deedledger/deedledger/internal/infra/database"
	"github.com/deedledger/deedledger/internal/infra/database/models"
)

// Ledger is the token service of record, backed by the shared database. A
// mint's authority is fixed at registration, so it may be cached; supply and
// balances are read fresh on every call.
type Ledger struct {
	db          *gorm.DB
	authorities *cache.Cache
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{
		db:          db,
		authorities: cache.New(10*time.Minute, 15*time.Minute),
	}
}

func (l *Ledger) RegisterMint(ctx context.Context, mintID string, authority string) error {
	result := database.FromContext(ctx, l.db).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&models.Mint{ID: mintID, Authority: authority})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to register mint")
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicateProperty
	}
	return nil
}

func (l *Ledger) Mint(ctx context.Context, mintID, to string, amount uint64, auth domain.Authority) error {
	authority, err := l.MintAuthority(ctx, mintID)
	if err != nil {
		return domain.LedgerError{Op: "mint", Err: err}
	}
	if authority != auth.Record {
		return domain.LedgerError{Op: "mint", Err: errors.New("authority mismatch")}
	}

	run := func(tx *gorm.DB) error {
		// lock the mint row so the supply counter stays serialized
		var mint models.Mint
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", mintID).
			Take(&mint).Error
		if err != nil {
			return errors.Wrap(err, "failed to lock mint")
		}

		if err := credit(tx, mintID, to, amount); err != nil {
			return err
		}

		err = tx.Model(&models.Mint{}).
			Where("id = ?", mintID).
			Update("supply", gorm.Expr("supply + ?", amount)).Error
		return errors.Wrap(err, "failed to advance supply")
	}

	return database.FromContext(ctx, l.db).Transaction(run)
}

func (l *Ledger) Transfer(ctx context.Context, mintID, from, to string, amount uint64, auth domain.Authority) error {
	if auth.Record != from && !domain.IsVaultOf(from, auth.Record) {
		return domain.LedgerError{Op: "transfer", Err: errors.New("authority mismatch")}
	}

	run := func(tx *gorm.DB) error {
		var balance models.Balance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mint_id = ? AND owner = ?", mintID, from).
			Take(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && balance.Amount < amount) {
			return domain.LedgerError{Op: "transfer", Err: errors.New("insufficient balance")}
		}
		if err != nil {
			return errors.Wrap(err, "failed to lock balance")
		}

		// a zeroed balance row disappears, keeping the holder index exact
		if balance.Amount == amount {
			err = tx.Delete(&models.Balance{}, "mint_id = ? AND owner = ?", mintID, from).Error
		} else {
			err = tx.Model(&models.Balance{}).
				Where("mint_id = ? AND owner = ?", mintID, from).
				Update("amount", gorm.Expr("amount - ?", amount)).Error
		}
		if err != nil {
			return errors.Wrap(err, "failed to debit balance")
		}

		return credit(tx, mintID, to, amount)
	}

	return database.FromContext(ctx, l.db).Transaction(run)
}

func (l *Ledger) BalanceOf(ctx context.Context, mintID, owner string) (uint64, error) {
	var balance models.Balance
	err := database.FromContext(ctx, l.db).
		Where("mint_id = ? AND owner = ?", mintID, owner).
		Take(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read balance")
	}
	return balance.Amount, nil
}

func (l *Ledger) TotalSupply(ctx context.Context, mintID string) (uint64, error) {
	var mint models.Mint
	err := database.FromContext(ctx, l.db).
		Where("id = ?", mintID).
		Take(&mint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read mint")
	}
	return mint.Supply, nil
}

func (l *Ledger) Holders(ctx context.Context, mintID string) ([]string, error) {
	var holders []string
	err := database.FromContext(ctx, l.db).
		Model(&models.Balance{}).
		Where("mint_id = ? AND amount > 0", mintID).
		Order("owner ASC").
		Pluck("owner", &holders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate holders")
	}
	return holders, nil
}

// MintAuthority resolves the registered authority of a mint, cached since
// authorities never change after registration.
func (l *Ledger) MintAuthority(ctx context.Context, mintID string) (string, error) {
	if cached, found := l.authorities.Get(mintID); found {
		return cached.(string), nil
	}

	var mint models.Mint
	err := database.FromContext(ctx, l.db).
		Where("id = ?", mintID).
		Take(&mint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.NotFoundError{Resource: "mint"}
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to read mint")
	}

	l.authorities.Set(mintID, mint.Authority, cache.DefaultExpiration)
	return mint.Authority, nil
}

func credit(tx *gorm.DB, mintID, owner string, amount uint64) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mint_id"}, {Name: "owner"}},
		DoUpdates: clause.Assignments(map[string]any{"amount": gorm.Expr("balances.amount + ?", amount)}),
	}).Create(&models.Balance{MintID: mintID, Owner: owner, Amount: amount}).Error
	return errors.Wrap(err, "failed to credit balance")
}
