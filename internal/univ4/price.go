package univ4

import (
	"math/big"

	"poolscope/internal/numeric"
)

// SqrtPriceToTokenPrices converts a Q96 sqrt price into the two per-token
// exchange rates, adjusted for each token's decimal scale. price0 is the
// amount of token1 one token0 buys; price1 is the inverse. A zero sqrt price
// yields zero for both, which is the expected state for a pool that has never
// traded.
func SqrtPriceToTokenPrices(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (numeric.Decimal, numeric.Decimal) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return numeric.Zero(), numeric.Zero()
	}

	squared := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	price0 := numeric.FromBigInt(squared).
		SafeDiv(numeric.FromBigInt(Q192)).
		Mul(numeric.FromBigInt(numeric.Pow10(int(decimals0)))).
		SafeDiv(numeric.FromBigInt(numeric.Pow10(int(decimals1))))

	price1 := numeric.One().SafeDiv(price0)
	return price0, price1
}
