package model

import (
	"fmt"
	"math/big"

	"poolscope/internal/numeric"
)

// EntityID builds a chain-qualified entity id.
func EntityID(chainID uint64, key string) string {
	return fmt.Sprintf("%d:%s", chainID, key)
}

// TickID builds the id of a tick record within a pool.
func TickID(poolID string, tickIdx int32) string {
	return fmt.Sprintf("%s#%d", poolID, tickIdx)
}

// Bundle holds the chain-wide native currency price in USD. One per chain,
// created lazily on the first swap.
type Bundle struct {
	ChainID        uint64          `json:"chain_id"`
	NativePriceUSD numeric.Decimal `json:"native_price_usd"`
}

// Token is a traded asset on one chain.
type Token struct {
	ID       string `json:"id"`
	ChainID  uint64 `json:"chain_id"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`

	// DerivedNative is this token's price in the chain's native currency.
	DerivedNative    numeric.Decimal `json:"derived_native"`
	TotalValueLocked numeric.Decimal `json:"total_value_locked"`

	VolumeUSD          numeric.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD numeric.Decimal `json:"untracked_volume_usd"`
	FeesUSD            numeric.Decimal `json:"fees_usd"`
	TxCount            *big.Int        `json:"tx_count"`

	// WhitelistPools lists pools pairing this token with a whitelisted
	// counterpart; it is the edge set walked during price discovery.
	WhitelistPools []string `json:"whitelist_pools"`
}

// Pool is one liquidity pool and its lifetime aggregates.
type Pool struct {
	ID          string `json:"id"`
	ChainID     uint64 `json:"chain_id"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Hooks       string `json:"hooks"`
	FeeTierPpm  uint32 `json:"fee_tier_ppm"`
	TickSpacing int32  `json:"tick_spacing"`

	SqrtPrice *big.Int `json:"sqrt_price"`
	Tick      OptInt32 `json:"tick"`
	Liquidity *big.Int `json:"liquidity"`

	Token0Price numeric.Decimal `json:"token0_price"`
	Token1Price numeric.Decimal `json:"token1_price"`

	TxCount             *big.Int        `json:"tx_count"`
	VolumeToken0        numeric.Decimal `json:"volume_token0"`
	VolumeToken1        numeric.Decimal `json:"volume_token1"`
	VolumeUSD           numeric.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD  numeric.Decimal `json:"untracked_volume_usd"`
	FeesUSD             numeric.Decimal `json:"fees_usd"`
	FeesUSDUntracked    numeric.Decimal `json:"fees_usd_untracked"`
	CollectedFeesToken0 numeric.Decimal `json:"collected_fees_token0"`
	CollectedFeesToken1 numeric.Decimal `json:"collected_fees_token1"`
	CollectedFeesUSD    numeric.Decimal `json:"collected_fees_usd"`

	TotalValueLockedToken0 numeric.Decimal `json:"total_value_locked_token0"`
	TotalValueLockedToken1 numeric.Decimal `json:"total_value_locked_token1"`
	TotalValueLockedETH    numeric.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD    numeric.Decimal `json:"total_value_locked_usd"`

	CreatedAtBlock     uint64 `json:"created_at_block"`
	CreatedAtTimestamp uint64 `json:"created_at_timestamp"`
}

// PoolManager is the per-chain rollup across every pool it manages.
type PoolManager struct {
	ID      string `json:"id"`
	ChainID uint64 `json:"chain_id"`
	Address string `json:"address"`

	PoolCount     *big.Int `json:"pool_count"`
	TxCount       *big.Int `json:"tx_count"`
	NumberOfSwaps *big.Int `json:"number_of_swaps"`
	HookedSwaps   *big.Int `json:"hooked_swaps"`
	HookedPools   *big.Int `json:"hooked_pools"`

	TotalVolumeUSD     numeric.Decimal `json:"total_volume_usd"`
	UntrackedVolumeUSD numeric.Decimal `json:"untracked_volume_usd"`
	TotalVolumeETH     numeric.Decimal `json:"total_volume_eth"`
	TotalFeesUSD       numeric.Decimal `json:"total_fees_usd"`
	TotalFeesETH       numeric.Decimal `json:"total_fees_eth"`

	TotalValueLockedETH numeric.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD numeric.Decimal `json:"total_value_locked_usd"`
}

// HookStats aggregates the pools attached to one hook address.
type HookStats struct {
	ID      string `json:"id"`
	ChainID uint64 `json:"chain_id"`
	Address string `json:"address"`

	NumberOfPools *big.Int `json:"number_of_pools"`
	NumberOfSwaps *big.Int `json:"number_of_swaps"`

	FirstPoolCreatedAt uint64 `json:"first_pool_created_at"`

	VolumeUSD          numeric.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD numeric.Decimal `json:"untracked_volume_usd"`
	FeesUSD            numeric.Decimal `json:"fees_usd"`
	FeesUSDUntracked   numeric.Decimal `json:"fees_usd_untracked"`

	TotalValueLockedETH numeric.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD numeric.Decimal `json:"total_value_locked_usd"`
}

// Tick is one initialized tick boundary of a pool. Records persist even after
// their gross liquidity returns to zero.
type Tick struct {
	ID      string `json:"id"`
	PoolID  string `json:"pool_id"`
	ChainID uint64 `json:"chain_id"`
	TickIdx int32  `json:"tick_idx"`

	LiquidityGross *big.Int `json:"liquidity_gross"`
	LiquidityNet   *big.Int `json:"liquidity_net"`

	CreatedAtBlock     uint64 `json:"created_at_block"`
	CreatedAtTimestamp uint64 `json:"created_at_timestamp"`
}

// SwapRecord is the immutable per-log record of one swap.
type SwapRecord struct {
	ID          string `json:"id"`
	ChainID     uint64 `json:"chain_id"`
	PoolID      string `json:"pool_id"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Sender      string `json:"sender"`
	Origin      string `json:"origin"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   uint64 `json:"timestamp"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`

	Amount0   numeric.Decimal `json:"amount0"`
	Amount1   numeric.Decimal `json:"amount1"`
	AmountUSD numeric.Decimal `json:"amount_usd"`

	SqrtPriceX96 *big.Int `json:"sqrt_price_x96"`
	Tick         int32    `json:"tick"`
}

// ModifyLiquidityRecord is the immutable per-log record of one liquidity change.
type ModifyLiquidityRecord struct {
	ID          string `json:"id"`
	ChainID     uint64 `json:"chain_id"`
	PoolID      string `json:"pool_id"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Sender      string `json:"sender"`
	Origin      string `json:"origin"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   uint64 `json:"timestamp"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`

	TickLower int32    `json:"tick_lower"`
	TickUpper int32    `json:"tick_upper"`
	Delta     *big.Int `json:"liquidity_delta"`

	Amount0   numeric.Decimal `json:"amount0"`
	Amount1   numeric.Decimal `json:"amount1"`
	AmountUSD numeric.Decimal `json:"amount_usd"`
}
