package erc20

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolscope/internal/chain"
	"poolscope/internal/chaincfg"
	"poolscope/internal/model"
)

const (
	// defaultDecimals is the clamp applied when a contract misreports or
	// refuses to report its decimal scale.
	defaultDecimals = 18
	// maxPlausibleDecimals bounds what a sane contract reports.
	maxPlausibleDecimals = 50

	unknownLiteral = "unknown"
)

// Resolver looks up token metadata over chain RPC, caching results per
// (chain, address).
type Resolver struct {
	clients *chain.Registry
	chains  *chaincfg.Registry
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[string]model.TokenMetadata
}

// NewResolver builds a Resolver over the given client registry.
func NewResolver(clients *chain.Registry, chains *chaincfg.Registry, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		clients: clients,
		chains:  chains,
		logger:  logger,
		cache:   make(map[string]model.TokenMetadata),
	}
}

// Resolve returns the metadata for a token contract. Configured overrides
// win over chain lookups; results are cached for the process lifetime. An
// RPC failure is returned to the caller, except for decimals, which clamps
// to the default on failure or implausible values.
func (r *Resolver) Resolve(ctx context.Context, chainID uint64, address string) (model.TokenMetadata, error) {
	if !common.IsHexAddress(address) {
		return model.TokenMetadata{}, fmt.Errorf("invalid token address: %s", address)
	}

	key := model.EntityID(chainID, strings.ToLower(address))
	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if r.chains != nil {
		if cfg, ok := r.chains.Lookup(chainID); ok {
			if override, ok := cfg.Override(address); ok {
				meta := model.TokenMetadata{
					Name:     override.Name,
					Symbol:   override.Symbol,
					Decimals: override.Decimals,
				}
				r.store(key, meta)
				return meta, nil
			}
		}
	}

	client, err := r.clients.Client(ctx, chainID)
	if err != nil {
		return model.TokenMetadata{}, fmt.Errorf("chain %d client: %w", chainID, err)
	}

	meta, err := fetch(ctx, client, common.HexToAddress(address), r.logger)
	if err != nil {
		return model.TokenMetadata{}, err
	}

	r.store(key, meta)
	return meta, nil
}

func (r *Resolver) store(key string, meta model.TokenMetadata) {
	r.mu.Lock()
	r.cache[key] = meta
	r.mu.Unlock()
}

func fetch(ctx context.Context, client *chain.Client, token common.Address, logger *zap.Logger) (model.TokenMetadata, error) {
	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return model.TokenMetadata{}, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return model.TokenMetadata{}, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := client.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	meta := model.TokenMetadata{
		Name:     unknownLiteral,
		Symbol:   unknownLiteral,
		Decimals: defaultDecimals,
	}

	if values, err := call("decimals", stringABI); err == nil {
		if decimals, ok := asUint8(values[0]); ok && decimals <= maxPlausibleDecimals {
			meta.Decimals = decimals
		} else {
			logger.Debug("implausible decimals, clamping",
				zap.String("token", token.Hex()))
		}
	} else {
		logger.Debug("decimals call failed, clamping",
			zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = Sanitize(symbol)
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = Sanitize(symbol)
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = Sanitize(name)
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = Sanitize(name)
		}
	} else {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

// Sanitize strips control characters before text reaches persisted state.
func Sanitize(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, input)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return unknownLiteral
	}
	return cleaned
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, bool) {
	switch v := value.(type) {
	case uint8:
		return v, true
	case uint16:
		if v > 255 {
			return 0, false
		}
		return uint8(v), true
	case uint32:
		if v > 255 {
			return 0, false
		}
		return uint8(v), true
	case uint64:
		if v > 255 {
			return 0, false
		}
		return uint8(v), true
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, false
		}
		return uint8(v.Uint64()), true
	default:
		return 0, false
	}
}
