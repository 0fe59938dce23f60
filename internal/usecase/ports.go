package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/domain"
)

var tracer = otel.Tracer("usecase")

// Ledger is the external token service of record for share-unit balances.
// It is authoritative for per-mint supply and per-owner balances; the core
// never caches either.
type Ledger interface {
	RegisterMint(ctx context.Context, mintID string, authority string) error
	Mint(ctx context.Context, mintID, to string, amount uint64, auth domain.Authority) error
	Transfer(ctx context.Context, mintID, from, to string, amount uint64, auth domain.Authority) error
	BalanceOf(ctx context.Context, mintID, owner string) (uint64, error)
	TotalSupply(ctx context.Context, mintID string) (uint64, error)
	// Holders enumerates owners with a positive balance of the mint.
	Holders(ctx context.Context, mintID string) ([]string, error)
}

// ValueRail moves native currency, used for sale settlement.
type ValueRail interface {
	TransferValue(ctx context.Context, from, to string, amount uint64) error
}

// Signal publishes fire-and-forget notifications to external subscribers.
type Signal interface {
	Publish(ctx context.Context, event deedledger.Event) error
}

// Clock supplies wall-clock time for deadline checks.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Atomic runs fn inside one storage transaction. Repositories, the ledger and
// the value rail all pick up the transaction from ctx, so paired movements
// either all commit or all roll back.
type Atomic interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
