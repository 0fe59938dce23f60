package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// ContextWithTx stores an open transaction in the context so adapters sharing
// the database join it instead of opening their own.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromContext returns the transaction carried by ctx, or fallback when the
// call is not running inside one.
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// Atomic runs functions inside a single gorm transaction. Nested calls join
// the transaction already carried by the context.
type Atomic struct {
	db *gorm.DB
}

func NewAtomic(db *gorm.DB) *Atomic {
	return &Atomic{db: db}
}

func (a *Atomic) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTx(ctx, tx))
	})
}
