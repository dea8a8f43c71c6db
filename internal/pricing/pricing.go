package pricing

import (
	"poolscope/internal/chaincfg"
	"poolscope/internal/model"
	"poolscope/internal/numeric"
)

// PoolLookup and TokenLookup let the price walk read entities through the
// caller's per-event cache, so refreshed values are visible mid-event.
type (
	PoolLookup  func(id string) (*model.Pool, error)
	TokenLookup func(id string) (*model.Token, error)
)

// NativePerToken derives a token's price in the chain's native currency by a
// single-hop walk over the pools pairing it with a whitelisted counterpart.
// The deepest pool whose native-denominated depth clears the configured
// minimum wins. Zero means unpriced, which is an expected state; tokens two
// or more hops from any reference asset stay at zero until a qualifying pool
// forms.
func NativePerToken(
	token *model.Token,
	cfg *chaincfg.ChainConfig,
	bundle *model.Bundle,
	pools PoolLookup,
	tokens TokenLookup,
) (numeric.Decimal, error) {
	if cfg.IsWrappedNative(token.Address) {
		return numeric.One(), nil
	}
	if cfg.IsStablecoin(token.Address) {
		return numeric.One().SafeDiv(bundle.NativePriceUSD), nil
	}

	minimumLocked := cfg.MinimumNativeLockedDecimal()
	largestLocked := numeric.Zero()
	price := numeric.Zero()

	for _, poolID := range token.WhitelistPools {
		pool, err := pools(poolID)
		if err != nil {
			return numeric.Zero(), err
		}
		if pool == nil || pool.Liquidity == nil || pool.Liquidity.Sign() == 0 {
			continue
		}

		switch token.ID {
		case pool.Token0:
			counterpart, err := tokens(pool.Token1)
			if err != nil {
				return numeric.Zero(), err
			}
			if counterpart == nil {
				continue
			}
			nativeLocked := pool.TotalValueLockedToken1.Mul(counterpart.DerivedNative)
			if nativeLocked.Cmp(minimumLocked) > 0 && nativeLocked.Cmp(largestLocked) > 0 {
				largestLocked = nativeLocked
				price = pool.Token0Price.Mul(counterpart.DerivedNative)
			}
		case pool.Token1:
			counterpart, err := tokens(pool.Token0)
			if err != nil {
				return numeric.Zero(), err
			}
			if counterpart == nil {
				continue
			}
			nativeLocked := pool.TotalValueLockedToken0.Mul(counterpart.DerivedNative)
			if nativeLocked.Cmp(minimumLocked) > 0 && nativeLocked.Cmp(largestLocked) > 0 {
				largestLocked = nativeLocked
				price = pool.Token1Price.Mul(counterpart.DerivedNative)
			}
		}
	}

	return price, nil
}

// NativePriceUSD reads the configured stablecoin/native reference pool for
// the instantaneous native-to-USD rate. A missing reference pool leaves the
// previous bundle value in place.
func NativePriceUSD(referencePool *model.Pool, stablecoinIsToken0 bool, previous numeric.Decimal) numeric.Decimal {
	if referencePool == nil {
		return previous
	}
	if stablecoinIsToken0 {
		return referencePool.Token1Price
	}
	return referencePool.Token0Price
}

// TrackedAmountUSD values a trade using only trust-anchored prices. Both
// sides whitelisted sums both legs; one side doubles the trusted leg; none
// contributes nothing to tracked volume. An untrusted token's derived price
// can be manipulated, so it never enters this figure.
func TrackedAmountUSD(
	amount0Abs numeric.Decimal,
	token0 *model.Token,
	amount1Abs numeric.Decimal,
	token1 *model.Token,
	cfg *chaincfg.ChainConfig,
	bundle *model.Bundle,
) numeric.Decimal {
	price0USD := token0.DerivedNative.Mul(bundle.NativePriceUSD)
	price1USD := token1.DerivedNative.Mul(bundle.NativePriceUSD)

	whitelisted0 := cfg.IsWhitelisted(token0.Address)
	whitelisted1 := cfg.IsWhitelisted(token1.Address)

	switch {
	case whitelisted0 && whitelisted1:
		return amount0Abs.Mul(price0USD).Add(amount1Abs.Mul(price1USD))
	case whitelisted0:
		return amount0Abs.Mul(price0USD).Mul(numeric.FromInt64(2))
	case whitelisted1:
		return amount1Abs.Mul(price1USD).Mul(numeric.FromInt64(2))
	default:
		return numeric.Zero()
	}
}
