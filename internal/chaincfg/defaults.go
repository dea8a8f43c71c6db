package chaincfg

// Well-known mainnet addresses. The v4 pool manager treats the zero address
// as native ETH, so the native "wrapped" slot is the zero currency.
const (
	mainnetPoolManager  = "0x000000000004444c5dc75cB358380D2e3dE08A90"
	mainnetNative       = "0x0000000000000000000000000000000000000000"
	mainnetUSDC         = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	mainnetUSDT         = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	mainnetDAI          = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	mainnetWBTC         = "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"
	mainnetWETH         = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	mainnetUSDCNativeID = "0x21c67e77068de97969ba93d4aab21826d33ca12bb9f565d8496e8fda8a82ca27"
)

// DefaultChains returns the compiled-in chain set used when no chains section
// is configured.
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{
			ChainID:            1,
			PoolManagerAddress: mainnetPoolManager,
			WrappedNative:      mainnetNative,
			NativeDetails: NativeTokenDetails{
				Name:     "Ether",
				Symbol:   "ETH",
				Decimals: 18,
			},
			Stablecoins: []string{
				mainnetUSDC,
				mainnetUSDT,
				mainnetDAI,
			},
			WhitelistTokens: []string{
				mainnetNative,
				mainnetWETH,
				mainnetUSDC,
				mainnetUSDT,
				mainnetDAI,
				mainnetWBTC,
			},
			StablecoinWrappedNativePoolID: mainnetUSDCNativeID,
			StablecoinIsToken0:            false,
			MinimumNativeLocked:           "20",
		},
	}
}
