package univ4

import (
	"math/big"
	"testing"
)

func TestAmountsForLiquidityBranches(t *testing.T) {
	liquidity := new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil)
	sqrtPrice := SqrtRatioAtTick(0).ToBig()

	// Range above the current tick: only token0 is needed.
	amount0, amount1 := AmountsForLiquidity(0, 60, 120, liquidity, sqrtPrice)
	if amount0.Sign() <= 0 {
		t.Fatalf("above-range amount0 = %s, want positive", amount0)
	}
	if amount1.Sign() != 0 {
		t.Fatalf("above-range amount1 = %s, want 0", amount1)
	}

	// Range below the current tick: only token1.
	amount0, amount1 = AmountsForLiquidity(0, -120, -60, liquidity, sqrtPrice)
	if amount0.Sign() != 0 {
		t.Fatalf("below-range amount0 = %s, want 0", amount0)
	}
	if amount1.Sign() <= 0 {
		t.Fatalf("below-range amount1 = %s, want positive", amount1)
	}

	// Straddling range: both tokens.
	amount0, amount1 = AmountsForLiquidity(0, -60, 60, liquidity, sqrtPrice)
	if amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		t.Fatalf("in-range amounts = %s/%s, want both positive", amount0, amount1)
	}
	// A symmetric range around a ratio of 1 needs near-equal amounts.
	diff := new(big.Int).Sub(amount0, amount1)
	diff.Abs(diff)
	limit := new(big.Int).Rsh(amount0, 10)
	if diff.Cmp(limit) > 0 {
		t.Fatalf("symmetric range amounts diverge: %s vs %s", amount0, amount1)
	}
}

func TestAmountsForLiquidityNegation(t *testing.T) {
	liquidity := new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil)
	sqrtPrice := SqrtRatioAtTick(0).ToBig()

	add0, add1 := AmountsForLiquidity(0, -60, 60, liquidity, sqrtPrice)
	remove0, remove1 := AmountsForLiquidity(0, -60, 60, new(big.Int).Neg(liquidity), sqrtPrice)

	if new(big.Int).Neg(add0).Cmp(remove0) != 0 {
		t.Fatalf("amount0 not exactly negated: add %s remove %s", add0, remove0)
	}
	if new(big.Int).Neg(add1).Cmp(remove1) != 0 {
		t.Fatalf("amount1 not exactly negated: add %s remove %s", add1, remove1)
	}
}

func TestAmountsForLiquidityZeroDelta(t *testing.T) {
	amount0, amount1 := AmountsForLiquidity(0, -60, 60, big.NewInt(0), nil)
	if amount0.Sign() != 0 || amount1.Sign() != 0 {
		t.Fatalf("zero delta: got %s/%s", amount0, amount1)
	}
	amount0, amount1 = AmountsForLiquidity(0, -60, 60, nil, nil)
	if amount0.Sign() != 0 || amount1.Sign() != 0 {
		t.Fatalf("nil delta: got %s/%s", amount0, amount1)
	}
}

func TestAmountsForLiquidityFallsBackToTickRatio(t *testing.T) {
	liquidity := big.NewInt(1_000_000_000)

	// Without a live sqrt price the current tick's ratio is used.
	fromTick0, fromTick1 := AmountsForLiquidity(0, -60, 60, liquidity, nil)
	explicit0, explicit1 := AmountsForLiquidity(0, -60, 60, liquidity, SqrtRatioAtTick(0).ToBig())
	if fromTick0.Cmp(explicit0) != 0 || fromTick1.Cmp(explicit1) != 0 {
		t.Fatalf("fallback mismatch: %s/%s vs %s/%s", fromTick0, fromTick1, explicit0, explicit1)
	}
}
