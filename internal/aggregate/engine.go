package aggregate

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"poolscope/internal/chaincfg"
	"poolscope/internal/model"
	"poolscope/internal/storage"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// MetadataResolver looks up name/symbol/decimals for a token contract.
type MetadataResolver interface {
	Resolve(ctx context.Context, chainID uint64, address string) (model.TokenMetadata, error)
}

// Engine turns one delivered event plus the previously persisted state into
// the next state. It holds no mutable state of its own between events; per-
// chain ordering and per-pool serialization are the delivery layer's job.
type Engine struct {
	store    storage.EntityStore
	chains   *chaincfg.Registry
	metadata MetadataResolver
	logger   *zap.Logger
}

func New(store storage.EntityStore, chains *chaincfg.Registry, metadata MetadataResolver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		chains:   chains,
		metadata: metadata,
		logger:   logger,
	}
}

// ProcessEnvelope dispatches one delivered event to its handler. Unknown
// event names are skipped, not failed: the upstream stream may carry log
// kinds the aggregates do not consume.
func (e *Engine) ProcessEnvelope(ctx context.Context, env model.EventEnvelope, preload bool) error {
	switch strings.ToLower(env.EventName) {
	case "initialize":
		ev, err := env.ParseInitialize()
		if err != nil {
			return fmt.Errorf("parse initialize %s#%d: %w", env.TxHash, env.LogIndex, err)
		}
		return e.HandleInitialize(ctx, ev, preload)
	case "swap":
		ev, err := env.ParseSwap()
		if err != nil {
			return fmt.Errorf("parse swap %s#%d: %w", env.TxHash, env.LogIndex, err)
		}
		return e.HandleSwap(ctx, ev, preload)
	case "modifyliquidity":
		ev, err := env.ParseModifyLiquidity()
		if err != nil {
			return fmt.Errorf("parse modify liquidity %s#%d: %w", env.TxHash, env.LogIndex, err)
		}
		return e.HandleModifyLiquidity(ctx, ev, preload)
	default:
		e.logger.Debug("skipping unhandled event",
			zap.String("event", env.EventName),
			zap.Uint64("chain", env.ChainID))
		return nil
	}
}

func (e *Engine) config(chainID uint64) (*chaincfg.ChainConfig, bool) {
	cfg, ok := e.chains.Lookup(chainID)
	if !ok {
		e.logger.Warn("no configuration for chain", zap.Uint64("chain", chainID))
	}
	return cfg, ok
}

func poolEntityID(chainID uint64, poolID string) string {
	return model.EntityID(chainID, strings.ToLower(poolID))
}

func tokenEntityID(chainID uint64, address string) string {
	return model.EntityID(chainID, strings.ToLower(address))
}

func isZeroAddress(address string) bool {
	address = strings.ToLower(strings.TrimSpace(address))
	return address == "" || address == zeroAddress
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func bigAdd(v *big.Int, delta *big.Int) *big.Int {
	return new(big.Int).Add(orZero(v), orZero(delta))
}

func bigIncr(v *big.Int) *big.Int {
	return bigAdd(v, big.NewInt(1))
}
