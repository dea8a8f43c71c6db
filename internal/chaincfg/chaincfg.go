package chaincfg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"poolscope/internal/numeric"
)

// NativeTokenDetails describes the chain's base asset for display purposes.
type NativeTokenDetails struct {
	Name     string `mapstructure:"name"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
}

// ChainConfig is the static per-chain configuration the engine consults.
type ChainConfig struct {
	ChainID            uint64             `mapstructure:"chain_id"`
	PoolManagerAddress string             `mapstructure:"pool_manager_address"`
	WrappedNative      string             `mapstructure:"wrapped_native_address"`
	NativeDetails      NativeTokenDetails `mapstructure:"native_token"`

	// SkipPools are pool ids excluded from aggregation entirely.
	SkipPools []string `mapstructure:"skip_pools"`
	// Stablecoins anchor USD pricing.
	Stablecoins []string `mapstructure:"stablecoin_addresses"`
	// WhitelistTokens are eligible for tracked volume and price discovery.
	WhitelistTokens []string `mapstructure:"whitelist_tokens"`

	// StablecoinWrappedNativePoolID is the reference pool for the
	// native-to-USD rate; StablecoinIsToken0 says which side it sits on.
	StablecoinWrappedNativePoolID string `mapstructure:"stablecoin_wrapped_native_pool_id"`
	StablecoinIsToken0            bool   `mapstructure:"stablecoin_is_token0"`

	// MinimumNativeLocked gates pools out of price discovery when their
	// native-denominated depth is too thin to trust.
	MinimumNativeLocked string `mapstructure:"minimum_native_locked"`

	// TokenOverrides fixes metadata for contracts that misreport it.
	TokenOverrides []TokenOverride `mapstructure:"token_overrides"`

	skipPoolSet   map[string]struct{}
	stablecoinSet map[string]struct{}
	whitelistSet  map[string]struct{}
	overrideByAdr map[string]TokenOverride
	minNative     numeric.Decimal
}

// TokenOverride replaces on-chain metadata for a known-broken contract.
type TokenOverride struct {
	Address  string `mapstructure:"address"`
	Name     string `mapstructure:"name"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
}

// Registry resolves chain configuration by chain id.
type Registry struct {
	byChain map[uint64]*ChainConfig
}

// NewRegistry indexes the given configs, compiling their lookup sets.
func NewRegistry(configs []ChainConfig) (*Registry, error) {
	byChain := make(map[uint64]*ChainConfig, len(configs))
	for i := range configs {
		cfg := configs[i]
		if cfg.ChainID == 0 {
			return nil, fmt.Errorf("chain config %d: chain id is required", i)
		}
		if _, dup := byChain[cfg.ChainID]; dup {
			return nil, fmt.Errorf("duplicate chain config for chain %d", cfg.ChainID)
		}
		if err := cfg.compile(); err != nil {
			return nil, fmt.Errorf("chain %d: %w", cfg.ChainID, err)
		}
		byChain[cfg.ChainID] = &cfg
	}
	return &Registry{byChain: byChain}, nil
}

// Load reads chain configs from the viper tree under "chains", falling back
// to the compiled-in defaults when the key is absent.
func Load(v *viper.Viper) (*Registry, error) {
	if v == nil || !v.IsSet("chains") {
		return NewRegistry(DefaultChains())
	}
	var configs []ChainConfig
	if err := v.UnmarshalKey("chains", &configs); err != nil {
		return nil, fmt.Errorf("decode chains: %w", err)
	}
	return NewRegistry(configs)
}

func (c *ChainConfig) compile() error {
	c.skipPoolSet = toSet(c.SkipPools)
	c.stablecoinSet = toSet(c.Stablecoins)
	c.whitelistSet = toSet(c.WhitelistTokens)
	c.overrideByAdr = make(map[string]TokenOverride, len(c.TokenOverrides))
	for _, override := range c.TokenOverrides {
		c.overrideByAdr[normalize(override.Address)] = override
	}

	min, err := numeric.Parse(c.MinimumNativeLocked)
	if err != nil {
		return fmt.Errorf("minimum native locked: %w", err)
	}
	c.minNative = min
	return nil
}

// Lookup returns the configuration for a chain, if known.
func (r *Registry) Lookup(chainID uint64) (*ChainConfig, bool) {
	cfg, ok := r.byChain[chainID]
	return cfg, ok
}

// ChainIDs lists the configured chains in ascending order.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.byChain))
	for id := range r.byChain {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ShouldSkipPool reports whether a pool is policy-excluded.
func (c *ChainConfig) ShouldSkipPool(poolID string) bool {
	_, ok := c.skipPoolSet[normalize(poolID)]
	return ok
}

// IsStablecoin reports whether the address is a configured USD anchor.
func (c *ChainConfig) IsStablecoin(address string) bool {
	_, ok := c.stablecoinSet[normalize(address)]
	return ok
}

// IsWhitelisted reports tracked-volume eligibility for a token address.
func (c *ChainConfig) IsWhitelisted(address string) bool {
	_, ok := c.whitelistSet[normalize(address)]
	return ok
}

// IsWrappedNative reports whether the address is the chain's native asset.
func (c *ChainConfig) IsWrappedNative(address string) bool {
	return normalize(address) == normalize(c.WrappedNative)
}

// Override returns the metadata override for an address, if configured.
func (c *ChainConfig) Override(address string) (TokenOverride, bool) {
	override, ok := c.overrideByAdr[normalize(address)]
	return override, ok
}

// MinimumNativeLocked is the price-discovery depth threshold.
func (c *ChainConfig) MinimumNativeLockedDecimal() numeric.Decimal {
	return c.minNative
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = normalize(item)
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	return set
}

func normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
