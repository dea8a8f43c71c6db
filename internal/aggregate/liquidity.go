package aggregate

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"poolscope/internal/model"
	"poolscope/internal/numeric"
	"poolscope/internal/univ4"
)

// HandleModifyLiquidity applies one liquidity change: tick ledger first, then
// the implied token amounts, TVL accumulation, active-liquidity adjustment
// and the manager/hook rollups. Prices are never re-derived here; a
// liquidity event values its amounts at the tokens' stored prices.
func (e *Engine) HandleModifyLiquidity(ctx context.Context, ev model.ModifyLiquidityEvent, preload bool) error {
	cfg, ok := e.config(ev.ChainID)
	if !ok {
		return nil
	}
	if cfg.ShouldSkipPool(ev.PoolID) {
		return nil
	}

	s := newSession(ctx, e.store)

	pool, err := s.pool(poolEntityID(ev.ChainID, ev.PoolID))
	if err != nil {
		return err
	}
	if pool == nil {
		return nil
	}

	token0, err := s.token(pool.Token0)
	if err != nil {
		return err
	}
	token1, err := s.token(pool.Token1)
	if err != nil {
		return err
	}
	manager, err := s.manager(tokenEntityID(ev.ChainID, cfg.PoolManagerAddress))
	if err != nil {
		return err
	}
	bundle, err := s.bundle(ev.ChainID)
	if err != nil {
		return err
	}

	if _, err := s.tick(model.TickID(pool.ID, ev.TickLower)); err != nil {
		return err
	}
	if _, err := s.tick(model.TickID(pool.ID, ev.TickUpper)); err != nil {
		return err
	}

	hooked := !isZeroAddress(pool.Hooks)
	var hook *model.HookStats
	if hooked {
		hook, err = s.hookStats(tokenEntityID(ev.ChainID, pool.Hooks))
		if err != nil {
			return err
		}
	}

	if preload {
		return nil
	}
	if token0 == nil || token1 == nil || manager == nil || bundle == nil {
		e.logger.Debug("liquidity event skipped, dependencies missing", zap.String("pool", pool.ID))
		return nil
	}

	delta := orZero(ev.LiquidityDelta)

	if err := applyTickDelta(s, pool, ev, ev.TickLower, delta, false); err != nil {
		return err
	}
	if err := applyTickDelta(s, pool, ev, ev.TickUpper, delta, true); err != nil {
		return err
	}

	currentTick := pool.Tick.OrZero()
	rawAmount0, rawAmount1 := univ4.AmountsForLiquidity(
		currentTick, ev.TickLower, ev.TickUpper, delta, pool.SqrtPrice)

	amount0 := numeric.FromRaw(rawAmount0, token0.Decimals)
	amount1 := numeric.FromRaw(rawAmount1, token1.Decimals)
	amountUSD := amount0.Mul(token0.DerivedNative).
		Add(amount1.Mul(token1.DerivedNative)).
		Mul(bundle.NativePriceUSD)

	oldPoolTVLNative := pool.TotalValueLockedETH
	oldPoolTVLUSD := pool.TotalValueLockedUSD

	pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Add(amount0)
	pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Add(amount1)
	token0.TotalValueLocked = token0.TotalValueLocked.Add(amount0)
	token1.TotalValueLocked = token1.TotalValueLocked.Add(amount1)

	pool.TxCount = bigIncr(pool.TxCount)
	token0.TxCount = bigIncr(token0.TxCount)
	token1.TxCount = bigIncr(token1.TxCount)
	manager.TxCount = bigIncr(manager.TxCount)

	// Liquidity outside [lower, upper) is not tradable at the current
	// price, so only in-range deltas move the pool's active figure.
	if ev.TickLower <= currentTick && currentTick < ev.TickUpper {
		pool.Liquidity = bigAdd(pool.Liquidity, delta)
	}

	recomputePoolTVL(pool, token0, token1, bundle)

	tvlNativeDelta := pool.TotalValueLockedETH.Sub(oldPoolTVLNative)
	tvlUSDDelta := pool.TotalValueLockedUSD.Sub(oldPoolTVLUSD)
	manager.TotalValueLockedETH = manager.TotalValueLockedETH.Add(tvlNativeDelta)
	manager.TotalValueLockedUSD = manager.TotalValueLockedUSD.Add(tvlUSDDelta)

	if hook != nil {
		hook.TotalValueLockedETH = hook.TotalValueLockedETH.Add(tvlNativeDelta)
		hook.TotalValueLockedUSD = hook.TotalValueLockedUSD.Add(tvlUSDDelta)
		s.stageHookStats(hook)
	}

	s.stageModifyLiquidity(&model.ModifyLiquidityRecord{
		ID:          model.RecordID(ev.ChainID, ev.TxHash, ev.LogIndex),
		ChainID:     ev.ChainID,
		PoolID:      pool.ID,
		Token0:      token0.ID,
		Token1:      token1.ID,
		Sender:      ev.Sender,
		Origin:      ev.Sender,
		BlockNumber: ev.BlockNumber,
		Timestamp:   ev.Timestamp,
		TxHash:      ev.TxHash,
		LogIndex:    ev.LogIndex,
		TickLower:   ev.TickLower,
		TickUpper:   ev.TickUpper,
		Delta:       delta,
		Amount0:     amount0,
		Amount1:     amount1,
		AmountUSD:   amountUSD,
	})

	s.stagePool(pool)
	s.stageToken(token0)
	s.stageToken(token1)
	s.stageManager(manager)

	return s.commit()
}

// applyTickDelta records a liquidity delta on one tick boundary, creating the
// tick on first reference. Gross liquidity accumulates the delta on both
// boundaries; net liquidity takes the delta on the lower boundary and its
// negation on the upper, which is what lets an in-order scan of net deltas
// reconstruct active liquidity. Ticks persist even at zero gross liquidity.
func applyTickDelta(s *session, pool *model.Pool, ev model.ModifyLiquidityEvent, tickIdx int32, delta *big.Int, upper bool) error {
	tick, err := s.tick(model.TickID(pool.ID, tickIdx))
	if err != nil {
		return err
	}
	if tick == nil {
		tick = &model.Tick{
			ID:                 model.TickID(pool.ID, tickIdx),
			PoolID:             pool.ID,
			ChainID:            pool.ChainID,
			TickIdx:            tickIdx,
			LiquidityGross:     new(big.Int),
			LiquidityNet:       new(big.Int),
			CreatedAtBlock:     ev.BlockNumber,
			CreatedAtTimestamp: ev.Timestamp,
		}
		s.putTick(tick)
	}

	tick.LiquidityGross = bigAdd(tick.LiquidityGross, delta)
	if upper {
		tick.LiquidityNet = new(big.Int).Sub(orZero(tick.LiquidityNet), orZero(delta))
	} else {
		tick.LiquidityNet = bigAdd(tick.LiquidityNet, delta)
	}
	s.stageTick(tick)
	return nil
}
