package aggregate

import (
	"context"

	"poolscope/internal/model"
	"poolscope/internal/storage"
)

// session is the working set of one event: every entity load goes through it
// and is cached, so repeated reads within the event observe in-flight
// mutations; staged writes accumulate into one batch committed at the end.
// A session is never reused across events.
type session struct {
	ctx   context.Context
	store storage.EntityStore

	bundles  map[uint64]*model.Bundle
	tokens   map[string]*model.Token
	pools    map[string]*model.Pool
	managers map[string]*model.PoolManager
	hooks    map[string]*model.HookStats
	ticks    map[string]*model.Tick

	batch  storage.Batch
	staged map[string]struct{}
}

func newSession(ctx context.Context, store storage.EntityStore) *session {
	return &session{
		ctx:      ctx,
		store:    store,
		bundles:  make(map[uint64]*model.Bundle),
		tokens:   make(map[string]*model.Token),
		pools:    make(map[string]*model.Pool),
		managers: make(map[string]*model.PoolManager),
		hooks:    make(map[string]*model.HookStats),
		ticks:    make(map[string]*model.Tick),
		staged:   make(map[string]struct{}),
	}
}

func (s *session) bundle(chainID uint64) (*model.Bundle, error) {
	if cached, ok := s.bundles[chainID]; ok {
		return cached, nil
	}
	loaded, err := s.store.Bundle(s.ctx, chainID)
	if err != nil {
		return nil, err
	}
	s.bundles[chainID] = loaded
	return loaded, nil
}

func (s *session) token(id string) (*model.Token, error) {
	if cached, ok := s.tokens[id]; ok {
		return cached, nil
	}
	loaded, err := s.store.Token(s.ctx, id)
	if err != nil {
		return nil, err
	}
	s.tokens[id] = loaded
	return loaded, nil
}

func (s *session) pool(id string) (*model.Pool, error) {
	if cached, ok := s.pools[id]; ok {
		return cached, nil
	}
	loaded, err := s.store.Pool(s.ctx, id)
	if err != nil {
		return nil, err
	}
	s.pools[id] = loaded
	return loaded, nil
}

func (s *session) manager(id string) (*model.PoolManager, error) {
	if cached, ok := s.managers[id]; ok {
		return cached, nil
	}
	loaded, err := s.store.PoolManager(s.ctx, id)
	if err != nil {
		return nil, err
	}
	s.managers[id] = loaded
	return loaded, nil
}

func (s *session) hookStats(id string) (*model.HookStats, error) {
	if cached, ok := s.hooks[id]; ok {
		return cached, nil
	}
	loaded, err := s.store.HookStats(s.ctx, id)
	if err != nil {
		return nil, err
	}
	s.hooks[id] = loaded
	return loaded, nil
}

func (s *session) tick(id string) (*model.Tick, error) {
	if cached, ok := s.ticks[id]; ok {
		return cached, nil
	}
	loaded, err := s.store.Tick(s.ctx, id)
	if err != nil {
		return nil, err
	}
	s.ticks[id] = loaded
	return loaded, nil
}

// put* seed the cache with entities created during the event so later reads
// in the same event find them.

func (s *session) putBundle(b *model.Bundle)       { s.bundles[b.ChainID] = b }
func (s *session) putToken(t *model.Token)         { s.tokens[t.ID] = t }
func (s *session) putPool(p *model.Pool)           { s.pools[p.ID] = p }
func (s *session) putManager(m *model.PoolManager) { s.managers[m.ID] = m }
func (s *session) putHookStats(h *model.HookStats) { s.hooks[h.ID] = h }
func (s *session) putTick(t *model.Tick)           { s.ticks[t.ID] = t }

// stage* enqueue an entity for the commit batch, once per id.

func (s *session) stageOnce(kind, id string) bool {
	key := kind + "|" + id
	if _, dup := s.staged[key]; dup {
		return false
	}
	s.staged[key] = struct{}{}
	return true
}

func (s *session) stageBundle(b *model.Bundle) {
	if s.stageOnce("bundle", model.EntityID(b.ChainID, "")) {
		s.batch.Bundles = append(s.batch.Bundles, b)
	}
}

func (s *session) stageToken(t *model.Token) {
	if s.stageOnce("token", t.ID) {
		s.batch.Tokens = append(s.batch.Tokens, t)
	}
}

func (s *session) stagePool(p *model.Pool) {
	if s.stageOnce("pool", p.ID) {
		s.batch.Pools = append(s.batch.Pools, p)
	}
}

func (s *session) stageManager(m *model.PoolManager) {
	if s.stageOnce("manager", m.ID) {
		s.batch.Managers = append(s.batch.Managers, m)
	}
}

func (s *session) stageHookStats(h *model.HookStats) {
	if s.stageOnce("hook", h.ID) {
		s.batch.Hooks = append(s.batch.Hooks, h)
	}
}

func (s *session) stageTick(t *model.Tick) {
	if s.stageOnce("tick", t.ID) {
		s.batch.Ticks = append(s.batch.Ticks, t)
	}
}

func (s *session) stageSwap(r *model.SwapRecord) {
	s.batch.Swaps = append(s.batch.Swaps, r)
}

func (s *session) stageModifyLiquidity(r *model.ModifyLiquidityRecord) {
	s.batch.ModifyLiquidity = append(s.batch.ModifyLiquidity, r)
}

// commit applies the staged writes as one logical unit. An empty batch is a
// no-op so skipped events never touch the store.
func (s *session) commit() error {
	if s.batch.Empty() {
		return nil
	}
	return s.store.Apply(s.ctx, &s.batch)
}
