package model

import "math/big"

// Entities are treated as values: the engine loads a copy, mutates it, and
// replaces it wholesale. Clone severs every aliased pointer so no reference
// to the previous state survives an update.

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// Clone returns a deep copy of the bundle.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return nil
	}
	out := *b
	return &out
}

// Clone returns a deep copy of the token.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	out := *t
	out.TxCount = cloneBig(t.TxCount)
	out.WhitelistPools = append([]string(nil), t.WhitelistPools...)
	return &out
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := *p
	out.SqrtPrice = cloneBig(p.SqrtPrice)
	out.Liquidity = cloneBig(p.Liquidity)
	out.TxCount = cloneBig(p.TxCount)
	return &out
}

// Clone returns a deep copy of the pool manager.
func (m *PoolManager) Clone() *PoolManager {
	if m == nil {
		return nil
	}
	out := *m
	out.PoolCount = cloneBig(m.PoolCount)
	out.TxCount = cloneBig(m.TxCount)
	out.NumberOfSwaps = cloneBig(m.NumberOfSwaps)
	out.HookedSwaps = cloneBig(m.HookedSwaps)
	out.HookedPools = cloneBig(m.HookedPools)
	return &out
}

// Clone returns a deep copy of the hook stats.
func (h *HookStats) Clone() *HookStats {
	if h == nil {
		return nil
	}
	out := *h
	out.NumberOfPools = cloneBig(h.NumberOfPools)
	out.NumberOfSwaps = cloneBig(h.NumberOfSwaps)
	return &out
}

// Clone returns a deep copy of the tick.
func (t *Tick) Clone() *Tick {
	if t == nil {
		return nil
	}
	out := *t
	out.LiquidityGross = cloneBig(t.LiquidityGross)
	out.LiquidityNet = cloneBig(t.LiquidityNet)
	return &out
}

// Clone returns a deep copy of the swap record.
func (s *SwapRecord) Clone() *SwapRecord {
	if s == nil {
		return nil
	}
	out := *s
	out.SqrtPriceX96 = cloneBig(s.SqrtPriceX96)
	return &out
}

// Clone returns a deep copy of the liquidity-change record.
func (m *ModifyLiquidityRecord) Clone() *ModifyLiquidityRecord {
	if m == nil {
		return nil
	}
	out := *m
	out.Delta = cloneBig(m.Delta)
	return &out
}
