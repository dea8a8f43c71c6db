package storage

import (
	"context"
	"sync"

	"poolscope/internal/model"
)

// MemoryStore keeps all entities in process memory. It backs tests and
// replay runs without a database. Reads and writes exchange deep copies so
// callers never alias stored state.
type MemoryStore struct {
	mu sync.RWMutex

	bundles  map[uint64]*model.Bundle
	tokens   map[string]*model.Token
	pools    map[string]*model.Pool
	managers map[string]*model.PoolManager
	hooks    map[string]*model.HookStats
	ticks    map[string]*model.Tick

	swaps     map[string]*model.SwapRecord
	modifyLiq map[string]*model.ModifyLiquidityRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bundles:   make(map[uint64]*model.Bundle),
		tokens:    make(map[string]*model.Token),
		pools:     make(map[string]*model.Pool),
		managers:  make(map[string]*model.PoolManager),
		hooks:     make(map[string]*model.HookStats),
		ticks:     make(map[string]*model.Tick),
		swaps:     make(map[string]*model.SwapRecord),
		modifyLiq: make(map[string]*model.ModifyLiquidityRecord),
	}
}

func (s *MemoryStore) Bundle(_ context.Context, chainID uint64) (*model.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundles[chainID].Clone(), nil
}

func (s *MemoryStore) Token(_ context.Context, id string) (*model.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[id].Clone(), nil
}

func (s *MemoryStore) Pool(_ context.Context, id string) (*model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pools[id].Clone(), nil
}

func (s *MemoryStore) PoolManager(_ context.Context, id string) (*model.PoolManager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.managers[id].Clone(), nil
}

func (s *MemoryStore) HookStats(_ context.Context, id string) (*model.HookStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hooks[id].Clone(), nil
}

func (s *MemoryStore) Tick(_ context.Context, id string) (*model.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks[id].Clone(), nil
}

// Apply installs the whole batch under one lock so no partial state is ever
// observable.
func (s *MemoryStore) Apply(_ context.Context, batch *Batch) error {
	if batch.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bundle := range batch.Bundles {
		s.bundles[bundle.ChainID] = bundle.Clone()
	}
	for _, token := range batch.Tokens {
		s.tokens[token.ID] = token.Clone()
	}
	for _, pool := range batch.Pools {
		s.pools[pool.ID] = pool.Clone()
	}
	for _, manager := range batch.Managers {
		s.managers[manager.ID] = manager.Clone()
	}
	for _, hook := range batch.Hooks {
		s.hooks[hook.ID] = hook.Clone()
	}
	for _, tick := range batch.Ticks {
		s.ticks[tick.ID] = tick.Clone()
	}
	for _, swap := range batch.Swaps {
		s.swaps[swap.ID] = swap.Clone()
	}
	for _, record := range batch.ModifyLiquidity {
		s.modifyLiq[record.ID] = record.Clone()
	}
	return nil
}

// Pools returns a copy of every stored pool, for brute-force cross checks.
func (s *MemoryStore) Pools() []*model.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		out = append(out, pool.Clone())
	}
	return out
}

// Ticks returns a copy of every stored tick.
func (s *MemoryStore) Ticks() []*model.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Tick, 0, len(s.ticks))
	for _, tick := range s.ticks {
		out = append(out, tick.Clone())
	}
	return out
}

// SwapRecord returns a stored swap record by id, for tests and inspection.
func (s *MemoryStore) SwapRecord(id string) *model.SwapRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.swaps[id].Clone()
}

// ModifyLiquidityRecord returns a stored liquidity record by id.
func (s *MemoryStore) ModifyLiquidityRecord(id string) *model.ModifyLiquidityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modifyLiq[id].Clone()
}
