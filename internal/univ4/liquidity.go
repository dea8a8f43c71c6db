package univ4

import (
	"math/big"

	"github.com/holiman/uint256"
)

// amount0Delta computes the token0 amount held between two sqrt prices for a
// positive liquidity amount: liquidity << 96 * (sqrtB - sqrtA) / sqrtB / sqrtA.
func amount0Delta(sqrtRatioA, sqrtRatioB *uint256.Int, liquidity *big.Int) *big.Int {
	lower, upper := orderRatios(sqrtRatioA, sqrtRatioB)
	if lower.IsZero() {
		return new(big.Int)
	}

	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(upper.ToBig(), lower.ToBig())

	amount := new(big.Int).Mul(numerator1, numerator2)
	amount.Div(amount, upper.ToBig())
	amount.Div(amount, lower.ToBig())
	return amount
}

// amount1Delta computes the token1 amount held between two sqrt prices for a
// positive liquidity amount: liquidity * (sqrtB - sqrtA) / Q96.
func amount1Delta(sqrtRatioA, sqrtRatioB *uint256.Int, liquidity *big.Int) *big.Int {
	lower, upper := orderRatios(sqrtRatioA, sqrtRatioB)

	diff := new(big.Int).Sub(upper.ToBig(), lower.ToBig())
	amount := new(big.Int).Mul(liquidity, diff)
	amount.Div(amount, Q96)
	return amount
}

func orderRatios(a, b *uint256.Int) (*uint256.Int, *uint256.Int) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

// AmountsForLiquidity returns the signed raw token amounts implied by applying
// liquidityDelta over [tickLower, tickUpper), branching on where the current
// tick sits relative to the range. currentSqrtPrice is the pool's live sqrt
// price; when absent the ratio at currentTick is used instead. The math is
// exact integer arithmetic throughout.
func AmountsForLiquidity(
	currentTick int32,
	tickLower int32,
	tickUpper int32,
	liquidityDelta *big.Int,
	currentSqrtPrice *big.Int,
) (*big.Int, *big.Int) {
	amount0 := new(big.Int)
	amount1 := new(big.Int)
	if liquidityDelta == nil || liquidityDelta.Sign() == 0 {
		return amount0, amount1
	}

	magnitude := new(big.Int).Abs(liquidityDelta)
	sqrtLower := SqrtRatioAtTick(tickLower)
	sqrtUpper := SqrtRatioAtTick(tickUpper)

	switch {
	case currentTick < tickLower:
		// Entirely above the current price: only token0 is required.
		amount0 = amount0Delta(sqrtLower, sqrtUpper, magnitude)
	case currentTick < tickUpper:
		sqrtCurrent := ratioFromPrice(currentSqrtPrice, currentTick)
		amount0 = amount0Delta(sqrtCurrent, sqrtUpper, magnitude)
		amount1 = amount1Delta(sqrtLower, sqrtCurrent, magnitude)
	default:
		// Entirely below the current price: only token1 is required.
		amount1 = amount1Delta(sqrtLower, sqrtUpper, magnitude)
	}

	if liquidityDelta.Sign() < 0 {
		amount0.Neg(amount0)
		amount1.Neg(amount1)
	}
	return amount0, amount1
}

func ratioFromPrice(sqrtPrice *big.Int, tick int32) *uint256.Int {
	if sqrtPrice == nil || sqrtPrice.Sign() == 0 {
		return SqrtRatioAtTick(tick)
	}
	ratio, overflow := uint256.FromBig(sqrtPrice)
	if overflow {
		return SqrtRatioAtTick(tick)
	}
	return ratio
}
