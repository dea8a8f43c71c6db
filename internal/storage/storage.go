package storage

import (
	"context"

	"poolscope/internal/model"
)

// EntityStore is the persistence boundary of the aggregation engine. Getters
// return (nil, nil) for absent entities; absence is an expected state during
// backfill, not an error. Apply commits one event's writes as a single
// logical unit.
type EntityStore interface {
	Bundle(ctx context.Context, chainID uint64) (*model.Bundle, error)
	Token(ctx context.Context, id string) (*model.Token, error)
	Pool(ctx context.Context, id string) (*model.Pool, error)
	PoolManager(ctx context.Context, id string) (*model.PoolManager, error)
	HookStats(ctx context.Context, id string) (*model.HookStats, error)
	Tick(ctx context.Context, id string) (*model.Tick, error)

	Apply(ctx context.Context, batch *Batch) error
}

// Batch is the full write set of one processed event.
type Batch struct {
	Bundles         []*model.Bundle
	Tokens          []*model.Token
	Pools           []*model.Pool
	Managers        []*model.PoolManager
	Hooks           []*model.HookStats
	Ticks           []*model.Tick
	Swaps           []*model.SwapRecord
	ModifyLiquidity []*model.ModifyLiquidityRecord
}

// Empty reports whether the batch carries no writes.
func (b *Batch) Empty() bool {
	if b == nil {
		return true
	}
	return len(b.Bundles) == 0 &&
		len(b.Tokens) == 0 &&
		len(b.Pools) == 0 &&
		len(b.Managers) == 0 &&
		len(b.Hooks) == 0 &&
		len(b.Ticks) == 0 &&
		len(b.Swaps) == 0 &&
		len(b.ModifyLiquidity) == 0
}

// Size returns the number of entity writes in the batch.
func (b *Batch) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Bundles) + len(b.Tokens) + len(b.Pools) + len(b.Managers) +
		len(b.Hooks) + len(b.Ticks) + len(b.Swaps) + len(b.ModifyLiquidity)
}
