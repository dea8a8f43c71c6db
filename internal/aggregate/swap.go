package aggregate

import (
	"context"

	"go.uber.org/zap"

	"poolscope/internal/model"
	"poolscope/internal/numeric"
	"poolscope/internal/pricing"
	"poolscope/internal/univ4"
)

var feeDenominator = numeric.FromInt64(1_000_000)

// HandleSwap applies one swap to the pool, its tokens, the chain bundle, the
// manager rollup and, when present, the hook stats. A missing pool, token or
// manager skips the event with zero writes; absence is expected during
// backfill. All writes commit as one unit.
func (e *Engine) HandleSwap(ctx context.Context, ev model.SwapEvent, preload bool) error {
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

	var referencePool *model.Pool
	if cfg.StablecoinWrappedNativePoolID != "" {
		referencePool, err = s.pool(poolEntityID(ev.ChainID, cfg.StablecoinWrappedNativePoolID))
		if err != nil {
			return err
		}
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
	if token0 == nil || token1 == nil || manager == nil {
		e.logger.Debug("swap skipped, dependencies missing", zap.String("pool", pool.ID))
		return nil
	}

	// The bundle exists from the first swap onward.
	if bundle == nil {
		bundle = &model.Bundle{ChainID: ev.ChainID}
		s.putBundle(bundle)
	}

	poolByID := func(id string) (*model.Pool, error) { return s.pool(id) }
	tokenByID := func(id string) (*model.Token, error) { return s.token(id) }

	token0.DerivedNative, err = pricing.NativePerToken(token0, cfg, bundle, poolByID, tokenByID)
	if err != nil {
		return err
	}
	token1.DerivedNative, err = pricing.NativePerToken(token1, cfg, bundle, poolByID, tokenByID)
	if err != nil {
		return err
	}

	bundle.NativePriceUSD = pricing.NativePriceUSD(referencePool, cfg.StablecoinIsToken0, bundle.NativePriceUSD)

	// Raw amounts are pool-perspective: negative means the pool received the
	// asset. Stored amounts are trader-perspective, so the sign flips.
	amount0 := numeric.FromRaw(ev.Amount0, token0.Decimals).Neg()
	amount1 := numeric.FromRaw(ev.Amount1, token1.Decimals).Neg()
	amount0Abs := amount0.Abs()
	amount1Abs := amount1.Abs()

	amount0USD := amount0Abs.Mul(token0.DerivedNative).Mul(bundle.NativePriceUSD)
	amount1USD := amount1Abs.Mul(token1.DerivedNative).Mul(bundle.NativePriceUSD)

	// The tracked figure values both legs of one trade; halving yields the
	// per-trade value. Same for the untracked sum of both legs.
	half := numeric.FromInt64(2)
	trackedUSD := pricing.TrackedAmountUSD(amount0Abs, token0, amount1Abs, token1, cfg, bundle).SafeDiv(half)
	trackedNative := trackedUSD.SafeDiv(bundle.NativePriceUSD)
	untrackedUSD := amount0USD.Add(amount1USD).SafeDiv(half)

	feeRate := numeric.FromInt64(int64(pool.FeeTierPpm)).SafeDiv(feeDenominator)
	feesNative := trackedNative.Mul(feeRate)
	feesUSD := trackedUSD.Mul(feeRate)
	feesToken0 := amount0Abs.Mul(feeRate)
	feesToken1 := amount1Abs.Mul(feeRate)

	// Tracked fees gate the untracked figure: only a trade with no trusted
	// pricing at all falls back to the untracked base.
	feesUSDUntracked := numeric.Zero()
	if feesUSD.IsZero() {
		feesUSDUntracked = untrackedUSD.Mul(feeRate)
	}

	oldPoolTVLNative := pool.TotalValueLockedETH
	oldPoolTVLUSD := pool.TotalValueLockedUSD

	pool.TxCount = bigIncr(pool.TxCount)
	pool.SqrtPrice = orZero(ev.SqrtPriceX96)
	pool.Tick = model.SomeInt32(ev.Tick)
	pool.Liquidity = orZero(ev.Liquidity)
	pool.Token0Price, pool.Token1Price = univ4.SqrtPriceToTokenPrices(
		pool.SqrtPrice, token0.Decimals, token1.Decimals)

	pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Add(amount0)
	pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Add(amount1)
	pool.VolumeToken0 = pool.VolumeToken0.Add(amount0Abs)
	pool.VolumeToken1 = pool.VolumeToken1.Add(amount1Abs)
	pool.VolumeUSD = pool.VolumeUSD.Add(trackedUSD)
	pool.UntrackedVolumeUSD = pool.UntrackedVolumeUSD.Add(untrackedUSD)
	pool.FeesUSD = pool.FeesUSD.Add(feesUSD)
	pool.FeesUSDUntracked = pool.FeesUSDUntracked.Add(feesUSDUntracked)
	pool.CollectedFeesToken0 = pool.CollectedFeesToken0.Add(feesToken0)
	pool.CollectedFeesToken1 = pool.CollectedFeesToken1.Add(feesToken1)
	pool.CollectedFeesUSD = pool.CollectedFeesUSD.Add(feesUSD)

	token0.TotalValueLocked = token0.TotalValueLocked.Add(amount0)
	token1.TotalValueLocked = token1.TotalValueLocked.Add(amount1)
	token0.VolumeUSD = token0.VolumeUSD.Add(trackedUSD)
	token1.VolumeUSD = token1.VolumeUSD.Add(trackedUSD)
	token0.UntrackedVolumeUSD = token0.UntrackedVolumeUSD.Add(untrackedUSD)
	token1.UntrackedVolumeUSD = token1.UntrackedVolumeUSD.Add(untrackedUSD)
	token0.FeesUSD = token0.FeesUSD.Add(feesUSD)
	token1.FeesUSD = token1.FeesUSD.Add(feesUSD)
	token0.TxCount = bigIncr(token0.TxCount)
	token1.TxCount = bigIncr(token1.TxCount)

	// Pool TVL in native/USD always recomputes from the just-updated token
	// balances; a cached figure would drift.
	recomputePoolTVL(pool, token0, token1, bundle)

	tvlNativeDelta := pool.TotalValueLockedETH.Sub(oldPoolTVLNative)
	tvlUSDDelta := pool.TotalValueLockedUSD.Sub(oldPoolTVLUSD)

	manager.TotalValueLockedETH = manager.TotalValueLockedETH.Add(tvlNativeDelta)
	manager.TotalValueLockedUSD = manager.TotalValueLockedUSD.Add(tvlUSDDelta)
	manager.TotalVolumeUSD = manager.TotalVolumeUSD.Add(trackedUSD)
	manager.TotalVolumeETH = manager.TotalVolumeETH.Add(trackedNative)
	manager.UntrackedVolumeUSD = manager.UntrackedVolumeUSD.Add(untrackedUSD)
	manager.TotalFeesUSD = manager.TotalFeesUSD.Add(feesUSD)
	manager.TotalFeesETH = manager.TotalFeesETH.Add(feesNative)
	manager.TxCount = bigIncr(manager.TxCount)
	manager.NumberOfSwaps = bigIncr(manager.NumberOfSwaps)
	if hooked {
		manager.HookedSwaps = bigIncr(manager.HookedSwaps)
	}

	if hook != nil {
		hook.NumberOfSwaps = bigIncr(hook.NumberOfSwaps)
		hook.VolumeUSD = hook.VolumeUSD.Add(trackedUSD)
		hook.UntrackedVolumeUSD = hook.UntrackedVolumeUSD.Add(untrackedUSD)
		hook.FeesUSD = hook.FeesUSD.Add(feesUSD)
		hook.FeesUSDUntracked = hook.FeesUSDUntracked.Add(feesUSDUntracked)
		hook.TotalValueLockedETH = hook.TotalValueLockedETH.Add(tvlNativeDelta)
		hook.TotalValueLockedUSD = hook.TotalValueLockedUSD.Add(tvlUSDDelta)
		s.stageHookStats(hook)
	}

	// Headline USD prefers the trust-anchored figure.
	amountUSD := trackedUSD
	if amountUSD.Sign() <= 0 {
		amountUSD = untrackedUSD
	}
	s.stageSwap(&model.SwapRecord{
		ID:           model.RecordID(ev.ChainID, ev.TxHash, ev.LogIndex),
		ChainID:      ev.ChainID,
		PoolID:       pool.ID,
		Token0:       token0.ID,
		Token1:       token1.ID,
		Sender:       ev.Sender,
		Origin:       ev.Sender,
		BlockNumber:  ev.BlockNumber,
		Timestamp:    ev.Timestamp,
		TxHash:       ev.TxHash,
		LogIndex:     ev.LogIndex,
		Amount0:      amount0,
		Amount1:      amount1,
		AmountUSD:    amountUSD,
		SqrtPriceX96: pool.SqrtPrice,
		Tick:         ev.Tick,
	})

	s.stagePool(pool)
	s.stageToken(token0)
	s.stageToken(token1)
	s.stageManager(manager)
	s.stageBundle(bundle)

	return s.commit()
}

// recomputePoolTVL rebuilds the pool's native and USD TVL from its token
// balances and current prices.
func recomputePoolTVL(pool *model.Pool, token0, token1 *model.Token, bundle *model.Bundle) {
	pool.TotalValueLockedETH = pool.TotalValueLockedToken0.Mul(token0.DerivedNative).
		Add(pool.TotalValueLockedToken1.Mul(token1.DerivedNative))
	pool.TotalValueLockedUSD = pool.TotalValueLockedETH.Mul(bundle.NativePriceUSD)
}
