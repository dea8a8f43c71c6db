package aggregate

import (
	"context"
	"math/big"
	"testing"

	"poolscope/internal/model"
	"poolscope/internal/numeric"
)

func TestTickLedgerRoundTrip(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	setupReferencePool(t, h)

	before := h.mustPool(t, refPoolID)

	delta := new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)
	add := liquidityEvent(refPoolID, -60, 60, delta, 10)
	if err := h.engine.HandleModifyLiquidity(ctx, add, false); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	poolID := poolEntityID(1, refPoolID)
	lower, _ := h.store.Tick(ctx, model.TickID(poolID, -60))
	upper, _ := h.store.Tick(ctx, model.TickID(poolID, 60))
	if lower == nil || upper == nil {
		t.Fatalf("boundary ticks not created")
	}
	if lower.LiquidityGross.Cmp(delta) != 0 || lower.LiquidityNet.Cmp(delta) != 0 {
		t.Fatalf("lower tick: gross=%s net=%s, want both %s", lower.LiquidityGross, lower.LiquidityNet, delta)
	}
	negDelta := new(big.Int).Neg(delta)
	if upper.LiquidityGross.Cmp(delta) != 0 || upper.LiquidityNet.Cmp(negDelta) != 0 {
		t.Fatalf("upper tick: gross=%s net=%s, want %s and %s", upper.LiquidityGross, upper.LiquidityNet, delta, negDelta)
	}

	poolAfterAdd := h.mustPool(t, refPoolID)
	if poolAfterAdd.Liquidity.Cmp(delta) != 0 {
		t.Fatalf("in-range delta should move active liquidity: got %s", poolAfterAdd.Liquidity)
	}

	remove := liquidityEvent(refPoolID, -60, 60, negDelta, 11)
	if err := h.engine.HandleModifyLiquidity(ctx, remove, false); err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}

	lower, _ = h.store.Tick(ctx, model.TickID(poolID, -60))
	upper, _ = h.store.Tick(ctx, model.TickID(poolID, 60))
	if lower == nil || upper == nil {
		t.Fatalf("ticks must persist at zero gross liquidity")
	}
	if lower.LiquidityGross.Sign() != 0 || lower.LiquidityNet.Sign() != 0 {
		t.Fatalf("lower tick not restored: gross=%s net=%s", lower.LiquidityGross, lower.LiquidityNet)
	}
	if upper.LiquidityGross.Sign() != 0 || upper.LiquidityNet.Sign() != 0 {
		t.Fatalf("upper tick not restored: gross=%s net=%s", upper.LiquidityGross, upper.LiquidityNet)
	}

	pool := h.mustPool(t, refPoolID)
	if pool.Liquidity.Sign() != 0 {
		t.Fatalf("active liquidity not restored: %s", pool.Liquidity)
	}
	if !pool.TotalValueLockedToken0.Equal(before.TotalValueLockedToken0) {
		t.Fatalf("token0 tvl not restored: %s", pool.TotalValueLockedToken0)
	}
	if !pool.TotalValueLockedToken1.Equal(before.TotalValueLockedToken1) {
		t.Fatalf("token1 tvl not restored: %s", pool.TotalValueLockedToken1)
	}
}

func TestOutOfRangeLiquidityLeavesActiveUnchanged(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	setupReferencePool(t, h)

	before := h.mustPool(t, refPoolID)

	// Current tick 0 sits below [10, 11).
	ev := liquidityEvent(refPoolID, 10, 11, new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil), 10)
	if err := h.engine.HandleModifyLiquidity(ctx, ev, false); err != nil {
		t.Fatalf("liquidity: %v", err)
	}

	pool := h.mustPool(t, refPoolID)
	if pool.Liquidity.Cmp(before.Liquidity) != 0 {
		t.Fatalf("active liquidity changed for out-of-range position: %s -> %s", before.Liquidity, pool.Liquidity)
	}
	if pool.TotalValueLockedToken0.Cmp(before.TotalValueLockedToken0) <= 0 {
		t.Fatalf("token0 tvl should grow: %s -> %s", before.TotalValueLockedToken0, pool.TotalValueLockedToken0)
	}
	if !pool.TotalValueLockedToken1.Equal(before.TotalValueLockedToken1) {
		t.Fatalf("token1 tvl should not move below the range: %s -> %s", before.TotalValueLockedToken1, pool.TotalValueLockedToken1)
	}

	record := h.store.ModifyLiquidityRecord(model.RecordID(1, ev.TxHash, ev.LogIndex))
	if record == nil {
		t.Fatalf("modify liquidity record not stored")
	}
	if record.Amount1.Sign() != 0 {
		t.Fatalf("amount1 = %s, want 0 below the range", record.Amount1)
	}
}

func TestLiquidityMissingBundleSkips(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	// Pool exists but no swap has run, so the chain has no bundle yet.
	init := initializeEvent(testPoolID, tokenAAddr, tokenBAddr, nativeAddr, sqrtPriceQ96(1, 1), 0, 1)
	if err := h.engine.HandleInitialize(ctx, init, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	before := h.mustPool(t, testPoolID)

	ev := liquidityEvent(testPoolID, -60, 60, big.NewInt(1000), 2)
	if err := h.engine.HandleModifyLiquidity(ctx, ev, false); err != nil {
		t.Fatalf("liquidity without bundle: %v", err)
	}
	after := h.mustPool(t, testPoolID)
	if after.TxCount.Cmp(before.TxCount) != 0 {
		t.Fatalf("event without bundle must be a no-op")
	}
	if record := h.store.ModifyLiquidityRecord(model.RecordID(1, ev.TxHash, ev.LogIndex)); record != nil {
		t.Fatalf("skipped event must not write a record")
	}
}

func TestManagerMatchesBruteForceResum(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	setupReferencePool(t, h)

	nativeAPool := "0xdddd000000000000000000000000000000000000000000000000000000000001"
	init := initializeEvent(nativeAPool, nativeAddr, tokenAAddr, hookAddr, sqrtPriceQ96(1, 1), 0, 20)
	if err := h.engine.HandleInitialize(ctx, init, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	deep := new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
	events := []func() error{
		func() error {
			return h.engine.HandleModifyLiquidity(ctx, liquidityEvent(nativeAPool, -600, 600, deep, 21), false)
		},
		func() error {
			return h.engine.HandleSwap(ctx, swapEvent(nativeAPool, "-2000000000000000000", "2000000000000000000", sqrtPriceQ96(1, 1), 100, 0, 22), false)
		},
		func() error {
			return h.engine.HandleSwap(ctx, swapEvent(refPoolID, "3000000000000000000", "-6000000000", sqrtPriceQ96(1, 22360), 500, 0, 23), false)
		},
		func() error {
			return h.engine.HandleModifyLiquidity(ctx, liquidityEvent(refPoolID, -120, 120, big.NewInt(5_000_000_000), 24), false)
		},
		func() error {
			return h.engine.HandleSwap(ctx, swapEvent(nativeAPool, "1000000000000000000", "-1000000000000000000", sqrtPriceQ96(1, 1), 100, 0, 25), false)
		},
		func() error {
			return h.engine.HandleModifyLiquidity(ctx, liquidityEvent(nativeAPool, -600, 600, new(big.Int).Neg(deep), 26), false)
		},
	}

	for i, apply := range events {
		if err := apply(); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}

		manager := h.mustManager(t)
		sumNative := numeric.Zero()
		sumUSD := numeric.Zero()
		for _, pool := range h.store.Pools() {
			sumNative = sumNative.Add(pool.TotalValueLockedETH)
			sumUSD = sumUSD.Add(pool.TotalValueLockedUSD)
		}
		if !manager.TotalValueLockedETH.Equal(sumNative) {
			t.Fatalf("after event %d: manager native tvl %s != pool sum %s", i, manager.TotalValueLockedETH, sumNative)
		}
		if !manager.TotalValueLockedUSD.Equal(sumUSD) {
			t.Fatalf("after event %d: manager usd tvl %s != pool sum %s", i, manager.TotalValueLockedUSD, sumUSD)
		}
	}
}

func TestHookTVLMatchesItsPools(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	setupReferencePool(t, h)

	hookedPool := "0xeeee000000000000000000000000000000000000000000000000000000000001"
	init := initializeEvent(hookedPool, nativeAddr, tokenAAddr, hookAddr, sqrtPriceQ96(1, 1), 0, 30)
	if err := h.engine.HandleInitialize(ctx, init, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	deep := new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
	if err := h.engine.HandleModifyLiquidity(ctx, liquidityEvent(hookedPool, -600, 600, deep, 31), false); err != nil {
		t.Fatalf("liquidity: %v", err)
	}
	if err := h.engine.HandleSwap(ctx, swapEvent(hookedPool, "-5000000000000000000", "5000000000000000000", sqrtPriceQ96(1, 1), 100, 0, 32), false); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := h.engine.HandleModifyLiquidity(ctx, liquidityEvent(hookedPool, -1200, 1200, deep, 33), false); err != nil {
		t.Fatalf("more liquidity: %v", err)
	}

	pool := h.mustPool(t, hookedPool)
	hook, err := h.store.HookStats(ctx, tokenEntityID(1, hookAddr))
	if err != nil || hook == nil {
		t.Fatalf("hook stats missing: %v", err)
	}
	if !hook.TotalValueLockedETH.Equal(pool.TotalValueLockedETH) {
		t.Fatalf("hook native tvl %s != pool %s", hook.TotalValueLockedETH, pool.TotalValueLockedETH)
	}
	if !hook.TotalValueLockedUSD.Equal(pool.TotalValueLockedUSD) {
		t.Fatalf("hook usd tvl %s != pool %s", hook.TotalValueLockedUSD, pool.TotalValueLockedUSD)
	}
}
