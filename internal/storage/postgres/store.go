package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolscope/internal/model"
	"poolscope/internal/numeric"
	"poolscope/internal/storage"
)

// Store provides Postgres persistence for aggregation entities. Decimal
// fields persist as exact rational text; raw integers as decimal text.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func parseDecimal(text string) (numeric.Decimal, error) {
	return numeric.Parse(text)
}

func parseBig(text string) (*big.Int, error) {
	return model.ParseBigInt(text)
}

func bigText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Bundle loads the chain bundle, or nil when absent.
func (s *Store) Bundle(ctx context.Context, chainID uint64) (*model.Bundle, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT native_price_usd FROM bundles WHERE chain_id=$1
	`, int64(chainID))

	var priceText string
	if err := row.Scan(&priceText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load bundle: %w", err)
	}
	price, err := parseDecimal(priceText)
	if err != nil {
		return nil, fmt.Errorf("bundle price: %w", err)
	}
	return &model.Bundle{ChainID: chainID, NativePriceUSD: price}, nil
}

// Token loads a token, or nil when absent.
func (s *Store) Token(ctx context.Context, id string) (*model.Token, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, address, name, symbol, decimals,
		       derived_native, total_value_locked,
		       volume_usd, untracked_volume_usd, fees_usd, tx_count,
		       whitelist_pools
		FROM tokens WHERE id=$1
	`, id)

	token := &model.Token{ID: id}
	var chainID int64
	var decimals int16
	var derived, tvl, volumeUSD, untrackedUSD, feesUSD, txCount string
	if err := row.Scan(
		&chainID, &token.Address, &token.Name, &token.Symbol, &decimals,
		&derived, &tvl, &volumeUSD, &untrackedUSD, &feesUSD, &txCount,
		&token.WhitelistPools,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load token: %w", err)
	}

	token.ChainID = uint64(chainID)
	token.Decimals = uint8(decimals)
	var err error
	if token.DerivedNative, err = parseDecimal(derived); err != nil {
		return nil, err
	}
	if token.TotalValueLocked, err = parseDecimal(tvl); err != nil {
		return nil, err
	}
	if token.VolumeUSD, err = parseDecimal(volumeUSD); err != nil {
		return nil, err
	}
	if token.UntrackedVolumeUSD, err = parseDecimal(untrackedUSD); err != nil {
		return nil, err
	}
	if token.FeesUSD, err = parseDecimal(feesUSD); err != nil {
		return nil, err
	}
	if token.TxCount, err = parseBig(txCount); err != nil {
		return nil, err
	}
	return token, nil
}

// Pool loads a pool, or nil when absent.
func (s *Store) Pool(ctx context.Context, id string) (*model.Pool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, token0, token1, hooks, fee_tier_ppm, tick_spacing,
		       sqrt_price, tick, liquidity, token0_price, token1_price,
		       tx_count, volume_token0, volume_token1, volume_usd,
		       untracked_volume_usd, fees_usd, fees_usd_untracked,
		       collected_fees_token0, collected_fees_token1, collected_fees_usd,
		       total_value_locked_token0, total_value_locked_token1,
		       total_value_locked_eth, total_value_locked_usd,
		       created_at_block, created_at_timestamp
		FROM pools WHERE id=$1
	`, id)

	pool := &model.Pool{ID: id}
	var chainID, feeTier, createdBlock, createdTs int64
	var tick *int32
	var sqrtPrice, liquidity, txCount string
	var decs [15]string
	if err := row.Scan(
		&chainID, &pool.Token0, &pool.Token1, &pool.Hooks, &feeTier, &pool.TickSpacing,
		&sqrtPrice, &tick, &liquidity, &decs[0], &decs[1],
		&txCount, &decs[2], &decs[3], &decs[4],
		&decs[5], &decs[6], &decs[7],
		&decs[8], &decs[9], &decs[10],
		&decs[11], &decs[12],
		&decs[13], &decs[14],
		&createdBlock, &createdTs,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load pool: %w", err)
	}

	pool.ChainID = uint64(chainID)
	pool.FeeTierPpm = uint32(feeTier)
	pool.CreatedAtBlock = uint64(createdBlock)
	pool.CreatedAtTimestamp = uint64(createdTs)
	if tick != nil {
		pool.Tick = model.SomeInt32(*tick)
	}

	var err error
	if pool.SqrtPrice, err = parseBig(sqrtPrice); err != nil {
		return nil, err
	}
	if pool.Liquidity, err = parseBig(liquidity); err != nil {
		return nil, err
	}
	if pool.TxCount, err = parseBig(txCount); err != nil {
		return nil, err
	}

	targets := []*numeric.Decimal{
		&pool.Token0Price, &pool.Token1Price,
		&pool.VolumeToken0, &pool.VolumeToken1, &pool.VolumeUSD,
		&pool.UntrackedVolumeUSD, &pool.FeesUSD, &pool.FeesUSDUntracked,
		&pool.CollectedFeesToken0, &pool.CollectedFeesToken1, &pool.CollectedFeesUSD,
		&pool.TotalValueLockedToken0, &pool.TotalValueLockedToken1,
		&pool.TotalValueLockedETH, &pool.TotalValueLockedUSD,
	}
	for i, target := range targets {
		if *target, err = parseDecimal(decs[i]); err != nil {
			return nil, fmt.Errorf("pool decimal %d: %w", i, err)
		}
	}
	return pool, nil
}

// PoolManager loads the per-chain rollup, or nil when absent.
func (s *Store) PoolManager(ctx context.Context, id string) (*model.PoolManager, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, address, pool_count, tx_count, number_of_swaps,
		       hooked_swaps, hooked_pools,
		       total_volume_usd, untracked_volume_usd, total_volume_eth,
		       total_fees_usd, total_fees_eth,
		       total_value_locked_eth, total_value_locked_usd
		FROM pool_managers WHERE id=$1
	`, id)

	manager := &model.PoolManager{ID: id}
	var chainID int64
	var counts [5]string
	var decs [7]string
	if err := row.Scan(
		&chainID, &manager.Address, &counts[0], &counts[1], &counts[2],
		&counts[3], &counts[4],
		&decs[0], &decs[1], &decs[2],
		&decs[3], &decs[4],
		&decs[5], &decs[6],
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load pool manager: %w", err)
	}

	manager.ChainID = uint64(chainID)
	var err error
	countTargets := []**big.Int{
		&manager.PoolCount, &manager.TxCount, &manager.NumberOfSwaps,
		&manager.HookedSwaps, &manager.HookedPools,
	}
	for i, target := range countTargets {
		if *target, err = parseBig(counts[i]); err != nil {
			return nil, err
		}
	}
	decTargets := []*numeric.Decimal{
		&manager.TotalVolumeUSD, &manager.UntrackedVolumeUSD, &manager.TotalVolumeETH,
		&manager.TotalFeesUSD, &manager.TotalFeesETH,
		&manager.TotalValueLockedETH, &manager.TotalValueLockedUSD,
	}
	for i, target := range decTargets {
		if *target, err = parseDecimal(decs[i]); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// HookStats loads hook statistics, or nil when absent.
func (s *Store) HookStats(ctx context.Context, id string) (*model.HookStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, address, number_of_pools, number_of_swaps,
		       first_pool_created_at,
		       volume_usd, untracked_volume_usd, fees_usd, fees_usd_untracked,
		       total_value_locked_eth, total_value_locked_usd
		FROM hook_stats WHERE id=$1
	`, id)

	hook := &model.HookStats{ID: id}
	var chainID, firstPool int64
	var pools, swaps string
	var decs [6]string
	if err := row.Scan(
		&chainID, &hook.Address, &pools, &swaps,
		&firstPool,
		&decs[0], &decs[1], &decs[2], &decs[3],
		&decs[4], &decs[5],
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load hook stats: %w", err)
	}

	hook.ChainID = uint64(chainID)
	hook.FirstPoolCreatedAt = uint64(firstPool)
	var err error
	if hook.NumberOfPools, err = parseBig(pools); err != nil {
		return nil, err
	}
	if hook.NumberOfSwaps, err = parseBig(swaps); err != nil {
		return nil, err
	}
	targets := []*numeric.Decimal{
		&hook.VolumeUSD, &hook.UntrackedVolumeUSD, &hook.FeesUSD, &hook.FeesUSDUntracked,
		&hook.TotalValueLockedETH, &hook.TotalValueLockedUSD,
	}
	for i, target := range targets {
		if *target, err = parseDecimal(decs[i]); err != nil {
			return nil, err
		}
	}
	return hook, nil
}

// Tick loads an initialized tick, or nil when absent.
func (s *Store) Tick(ctx context.Context, id string) (*model.Tick, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pool_id, chain_id, tick_idx, liquidity_gross, liquidity_net,
		       created_at_block, created_at_timestamp
		FROM ticks WHERE id=$1
	`, id)

	tick := &model.Tick{ID: id}
	var chainID, createdBlock, createdTs int64
	var gross, net string
	if err := row.Scan(
		&tick.PoolID, &chainID, &tick.TickIdx, &gross, &net,
		&createdBlock, &createdTs,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load tick: %w", err)
	}

	tick.ChainID = uint64(chainID)
	tick.CreatedAtBlock = uint64(createdBlock)
	tick.CreatedAtTimestamp = uint64(createdTs)
	var err error
	if tick.LiquidityGross, err = parseBig(gross); err != nil {
		return nil, err
	}
	if tick.LiquidityNet, err = parseBig(net); err != nil {
		return nil, err
	}
	return tick, nil
}

// Apply commits one event's write set inside a single transaction.
func (s *Store) Apply(ctx context.Context, batch *storage.Batch) error {
	if batch.Empty() {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	pgBatch := &pgx.Batch{}
	queueBatch(pgBatch, batch)

	results := tx.SendBatch(ctx, pgBatch)
	for i := 0; i < pgBatch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("apply batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

func queueBatch(pgBatch *pgx.Batch, batch *storage.Batch) {
	for _, bundle := range batch.Bundles {
		pgBatch.Queue(`
			INSERT INTO bundles (chain_id, native_price_usd, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (chain_id) DO UPDATE SET
				native_price_usd = EXCLUDED.native_price_usd,
				updated_at = now()
		`, int64(bundle.ChainID), bundle.NativePriceUSD.String())
	}

	for _, token := range batch.Tokens {
		pgBatch.Queue(`
			INSERT INTO tokens (
				id, chain_id, address, name, symbol, decimals,
				derived_native, total_value_locked,
				volume_usd, untracked_volume_usd, fees_usd, tx_count,
				whitelist_pools, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				symbol = EXCLUDED.symbol,
				decimals = EXCLUDED.decimals,
				derived_native = EXCLUDED.derived_native,
				total_value_locked = EXCLUDED.total_value_locked,
				volume_usd = EXCLUDED.volume_usd,
				untracked_volume_usd = EXCLUDED.untracked_volume_usd,
				fees_usd = EXCLUDED.fees_usd,
				tx_count = EXCLUDED.tx_count,
				whitelist_pools = EXCLUDED.whitelist_pools,
				updated_at = now()
		`,
			token.ID, int64(token.ChainID), token.Address, token.Name, token.Symbol,
			int16(token.Decimals), token.DerivedNative.String(),
			token.TotalValueLocked.String(), token.VolumeUSD.String(),
			token.UntrackedVolumeUSD.String(), token.FeesUSD.String(),
			bigText(token.TxCount), token.WhitelistPools,
		)
	}

	for _, pool := range batch.Pools {
		var tick *int32
		if value, ok := pool.Tick.Value(); ok {
			tickCopy := value
			tick = &tickCopy
		}
		pgBatch.Queue(`
			INSERT INTO pools (
				id, chain_id, token0, token1, hooks, fee_tier_ppm, tick_spacing,
				sqrt_price, tick, liquidity, token0_price, token1_price,
				tx_count, volume_token0, volume_token1, volume_usd,
				untracked_volume_usd, fees_usd, fees_usd_untracked,
				collected_fees_token0, collected_fees_token1, collected_fees_usd,
				total_value_locked_token0, total_value_locked_token1,
				total_value_locked_eth, total_value_locked_usd,
				created_at_block, created_at_timestamp, updated_at
			) VALUES (
				$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
				$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,now()
			)
			ON CONFLICT (id) DO UPDATE SET
				sqrt_price = EXCLUDED.sqrt_price,
				tick = EXCLUDED.tick,
				liquidity = EXCLUDED.liquidity,
				token0_price = EXCLUDED.token0_price,
				token1_price = EXCLUDED.token1_price,
				tx_count = EXCLUDED.tx_count,
				volume_token0 = EXCLUDED.volume_token0,
				volume_token1 = EXCLUDED.volume_token1,
				volume_usd = EXCLUDED.volume_usd,
				untracked_volume_usd = EXCLUDED.untracked_volume_usd,
				fees_usd = EXCLUDED.fees_usd,
				fees_usd_untracked = EXCLUDED.fees_usd_untracked,
				collected_fees_token0 = EXCLUDED.collected_fees_token0,
				collected_fees_token1 = EXCLUDED.collected_fees_token1,
				collected_fees_usd = EXCLUDED.collected_fees_usd,
				total_value_locked_token0 = EXCLUDED.total_value_locked_token0,
				total_value_locked_token1 = EXCLUDED.total_value_locked_token1,
				total_value_locked_eth = EXCLUDED.total_value_locked_eth,
				total_value_locked_usd = EXCLUDED.total_value_locked_usd,
				updated_at = now()
		`,
			pool.ID, int64(pool.ChainID), pool.Token0, pool.Token1, pool.Hooks,
			int64(pool.FeeTierPpm), pool.TickSpacing,
			bigText(pool.SqrtPrice), tick, bigText(pool.Liquidity),
			pool.Token0Price.String(), pool.Token1Price.String(),
			bigText(pool.TxCount), pool.VolumeToken0.String(), pool.VolumeToken1.String(),
			pool.VolumeUSD.String(), pool.UntrackedVolumeUSD.String(),
			pool.FeesUSD.String(), pool.FeesUSDUntracked.String(),
			pool.CollectedFeesToken0.String(), pool.CollectedFeesToken1.String(),
			pool.CollectedFeesUSD.String(),
			pool.TotalValueLockedToken0.String(), pool.TotalValueLockedToken1.String(),
			pool.TotalValueLockedETH.String(), pool.TotalValueLockedUSD.String(),
			int64(pool.CreatedAtBlock), int64(pool.CreatedAtTimestamp),
		)
	}

	for _, manager := range batch.Managers {
		pgBatch.Queue(`
			INSERT INTO pool_managers (
				id, chain_id, address, pool_count, tx_count, number_of_swaps,
				hooked_swaps, hooked_pools,
				total_volume_usd, untracked_volume_usd, total_volume_eth,
				total_fees_usd, total_fees_eth,
				total_value_locked_eth, total_value_locked_usd, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
			ON CONFLICT (id) DO UPDATE SET
				pool_count = EXCLUDED.pool_count,
				tx_count = EXCLUDED.tx_count,
				number_of_swaps = EXCLUDED.number_of_swaps,
				hooked_swaps = EXCLUDED.hooked_swaps,
				hooked_pools = EXCLUDED.hooked_pools,
				total_volume_usd = EXCLUDED.total_volume_usd,
				untracked_volume_usd = EXCLUDED.untracked_volume_usd,
				total_volume_eth = EXCLUDED.total_volume_eth,
				total_fees_usd = EXCLUDED.total_fees_usd,
				total_fees_eth = EXCLUDED.total_fees_eth,
				total_value_locked_eth = EXCLUDED.total_value_locked_eth,
				total_value_locked_usd = EXCLUDED.total_value_locked_usd,
				updated_at = now()
		`,
			manager.ID, int64(manager.ChainID), manager.Address,
			bigText(manager.PoolCount), bigText(manager.TxCount),
			bigText(manager.NumberOfSwaps), bigText(manager.HookedSwaps),
			bigText(manager.HookedPools),
			manager.TotalVolumeUSD.String(), manager.UntrackedVolumeUSD.String(),
			manager.TotalVolumeETH.String(), manager.TotalFeesUSD.String(),
			manager.TotalFeesETH.String(),
			manager.TotalValueLockedETH.String(), manager.TotalValueLockedUSD.String(),
		)
	}

	for _, hook := range batch.Hooks {
		pgBatch.Queue(`
			INSERT INTO hook_stats (
				id, chain_id, address, number_of_pools, number_of_swaps,
				first_pool_created_at,
				volume_usd, untracked_volume_usd, fees_usd, fees_usd_untracked,
				total_value_locked_eth, total_value_locked_usd, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
			ON CONFLICT (id) DO UPDATE SET
				number_of_pools = EXCLUDED.number_of_pools,
				number_of_swaps = EXCLUDED.number_of_swaps,
				volume_usd = EXCLUDED.volume_usd,
				untracked_volume_usd = EXCLUDED.untracked_volume_usd,
				fees_usd = EXCLUDED.fees_usd,
				fees_usd_untracked = EXCLUDED.fees_usd_untracked,
				total_value_locked_eth = EXCLUDED.total_value_locked_eth,
				total_value_locked_usd = EXCLUDED.total_value_locked_usd,
				updated_at = now()
		`,
			hook.ID, int64(hook.ChainID), hook.Address,
			bigText(hook.NumberOfPools), bigText(hook.NumberOfSwaps),
			int64(hook.FirstPoolCreatedAt),
			hook.VolumeUSD.String(), hook.UntrackedVolumeUSD.String(),
			hook.FeesUSD.String(), hook.FeesUSDUntracked.String(),
			hook.TotalValueLockedETH.String(), hook.TotalValueLockedUSD.String(),
		)
	}

	for _, tick := range batch.Ticks {
		pgBatch.Queue(`
			INSERT INTO ticks (
				id, pool_id, chain_id, tick_idx, liquidity_gross, liquidity_net,
				created_at_block, created_at_timestamp, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
			ON CONFLICT (id) DO UPDATE SET
				liquidity_gross = EXCLUDED.liquidity_gross,
				liquidity_net = EXCLUDED.liquidity_net,
				updated_at = now()
		`,
			tick.ID, tick.PoolID, int64(tick.ChainID), tick.TickIdx,
			bigText(tick.LiquidityGross), bigText(tick.LiquidityNet),
			int64(tick.CreatedAtBlock), int64(tick.CreatedAtTimestamp),
		)
	}

	for _, swap := range batch.Swaps {
		pgBatch.Queue(`
			INSERT INTO swaps (
				id, chain_id, pool_id, token0, token1, sender, origin,
				block_number, ts, tx_hash, log_index,
				amount0, amount1, amount_usd, sqrt_price_x96, tick
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (id) DO NOTHING
		`,
			swap.ID, int64(swap.ChainID), swap.PoolID, swap.Token0, swap.Token1,
			swap.Sender, swap.Origin,
			int64(swap.BlockNumber), int64(swap.Timestamp), swap.TxHash,
			int64(swap.LogIndex),
			swap.Amount0.String(), swap.Amount1.String(), swap.AmountUSD.String(),
			bigText(swap.SqrtPriceX96), swap.Tick,
		)
	}

	for _, record := range batch.ModifyLiquidity {
		pgBatch.Queue(`
			INSERT INTO modify_liquidity (
				id, chain_id, pool_id, token0, token1, sender, origin,
				block_number, ts, tx_hash, log_index,
				tick_lower, tick_upper, liquidity_delta,
				amount0, amount1, amount_usd
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			ON CONFLICT (id) DO NOTHING
		`,
			record.ID, int64(record.ChainID), record.PoolID, record.Token0, record.Token1,
			record.Sender, record.Origin,
			int64(record.BlockNumber), int64(record.Timestamp), record.TxHash,
			int64(record.LogIndex),
			record.TickLower, record.TickUpper, bigText(record.Delta),
			record.Amount0.String(), record.Amount1.String(), record.AmountUSD.String(),
		)
	}
}
