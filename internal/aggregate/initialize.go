package aggregate

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"poolscope/internal/chaincfg"
	"poolscope/internal/model"
	"poolscope/internal/numeric"
	"poolscope/internal/univ4"
)

// HandleInitialize creates the pool entity and its tokens from a pool
// creation event. Re-delivery of an already known pool is a no-op. When
// preload is set the entity loads are issued and the handler returns without
// computing or writing.
func (e *Engine) HandleInitialize(ctx context.Context, ev model.InitializeEvent, preload bool) error {
	cfg, ok := e.config(ev.ChainID)
	if !ok {
		return nil
	}
	if cfg.ShouldSkipPool(ev.PoolID) {
		return nil
	}

	s := newSession(ctx, e.store)

	poolID := poolEntityID(ev.ChainID, ev.PoolID)
	pool, err := s.pool(poolID)
	if err != nil {
		return err
	}

	managerID := tokenEntityID(ev.ChainID, cfg.PoolManagerAddress)
	manager, err := s.manager(managerID)
	if err != nil {
		return err
	}

	token0ID := tokenEntityID(ev.ChainID, ev.Currency0)
	token1ID := tokenEntityID(ev.ChainID, ev.Currency1)
	token0, err := s.token(token0ID)
	if err != nil {
		return err
	}
	token1, err := s.token(token1ID)
	if err != nil {
		return err
	}

	var hook *model.HookStats
	hooked := !isZeroAddress(ev.Hooks)
	if hooked {
		hook, err = s.hookStats(tokenEntityID(ev.ChainID, ev.Hooks))
		if err != nil {
			return err
		}
	}

	if preload {
		return nil
	}
	if pool != nil {
		e.logger.Debug("pool already initialized", zap.String("pool", poolID))
		return nil
	}

	if token0 == nil {
		token0, err = e.createToken(ctx, cfg, ev.ChainID, ev.Currency0)
		if err != nil {
			return fmt.Errorf("resolve token0 %s: %w", ev.Currency0, err)
		}
		s.putToken(token0)
	}
	if token1 == nil {
		token1, err = e.createToken(ctx, cfg, ev.ChainID, ev.Currency1)
		if err != nil {
			return fmt.Errorf("resolve token1 %s: %w", ev.Currency1, err)
		}
		s.putToken(token1)
	}

	if manager == nil {
		manager = newPoolManager(ev.ChainID, cfg.PoolManagerAddress)
		s.putManager(manager)
	}

	pool = &model.Pool{
		ID:                 poolID,
		ChainID:            ev.ChainID,
		Token0:             token0.ID,
		Token1:             token1.ID,
		Hooks:              strings.ToLower(ev.Hooks),
		FeeTierPpm:         ev.Fee,
		TickSpacing:        ev.TickSpacing,
		SqrtPrice:          orZero(ev.SqrtPriceX96),
		Tick:               model.SomeInt32(ev.Tick),
		Liquidity:          new(big.Int),
		TxCount:            new(big.Int),
		CreatedAtBlock:     ev.BlockNumber,
		CreatedAtTimestamp: ev.Timestamp,
	}
	pool.Token0Price, pool.Token1Price = univ4.SqrtPriceToTokenPrices(
		pool.SqrtPrice, token0.Decimals, token1.Decimals)
	s.putPool(pool)

	// Price discovery edges: a pool becomes walkable from a token's side
	// when its counterpart is whitelisted.
	if cfg.IsWhitelisted(token0.Address) {
		token1.WhitelistPools = append(token1.WhitelistPools, pool.ID)
	}
	if cfg.IsWhitelisted(token1.Address) {
		token0.WhitelistPools = append(token0.WhitelistPools, pool.ID)
	}

	manager.PoolCount = bigIncr(manager.PoolCount)

	if hooked {
		manager.HookedPools = bigIncr(manager.HookedPools)
		if hook == nil {
			hook = &model.HookStats{
				ID:                 tokenEntityID(ev.ChainID, ev.Hooks),
				ChainID:            ev.ChainID,
				Address:            strings.ToLower(ev.Hooks),
				NumberOfPools:      new(big.Int),
				NumberOfSwaps:      new(big.Int),
				FirstPoolCreatedAt: ev.Timestamp,
			}
			s.putHookStats(hook)
		}
		hook.NumberOfPools = bigIncr(hook.NumberOfPools)
		s.stageHookStats(hook)
	}

	s.stagePool(pool)
	s.stageToken(token0)
	s.stageToken(token1)
	s.stageManager(manager)

	e.logger.Info("pool initialized",
		zap.String("pool", pool.ID),
		zap.String("token0", token0.Symbol),
		zap.String("token1", token1.Symbol),
		zap.String("token0_price", pool.Token0Price.Display(8)),
		zap.Uint32("fee_ppm", pool.FeeTierPpm),
		zap.Bool("hooked", hooked))

	return s.commit()
}

// createToken builds a fresh Token entity, resolving metadata over RPC except
// for the native currency, whose details come from configuration.
func (e *Engine) createToken(ctx context.Context, cfg *chaincfg.ChainConfig, chainID uint64, address string) (*model.Token, error) {
	token := &model.Token{
		ID:      tokenEntityID(chainID, address),
		ChainID: chainID,
		Address: strings.ToLower(address),
		TxCount: new(big.Int),
	}

	if isZeroAddress(address) || cfg.IsWrappedNative(address) {
		token.Name = cfg.NativeDetails.Name
		token.Symbol = cfg.NativeDetails.Symbol
		token.Decimals = cfg.NativeDetails.Decimals
		token.DerivedNative = numeric.One()
		return token, nil
	}

	meta, err := e.metadata.Resolve(ctx, chainID, address)
	if err != nil {
		return nil, err
	}
	token.Name = meta.Name
	token.Symbol = meta.Symbol
	token.Decimals = meta.Decimals
	return token, nil
}

func newPoolManager(chainID uint64, address string) *model.PoolManager {
	return &model.PoolManager{
		ID:            tokenEntityID(chainID, address),
		ChainID:       chainID,
		Address:       strings.ToLower(address),
		PoolCount:     new(big.Int),
		TxCount:       new(big.Int),
		NumberOfSwaps: new(big.Int),
		HookedSwaps:   new(big.Int),
		HookedPools:   new(big.Int),
	}
}
