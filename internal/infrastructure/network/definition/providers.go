package networkdefinition

import (
	"fmt"
	"os"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Base = entity.NetworkDefinition{
		ChainID:      8453,
		Name:         "Base",
		Identifier:   "base",
		NativeName:   "Base Ethereum",
		NativeSymbol: "ETH",
		Decimals:     18,
		RPCURLs: []string{
			"https://rpc-endpoints.superfluid.dev/base-mainnet?app=streme-x8fsj6",
			"https://mainnet.base.org",
			"https://developer-access-mainnet.base.org",
			"https://base.meowrpc.com",
			"https://1rpc.io/base",
		},
		ExplorerAPIURL:            "https://api.basescan.org/api",
		IndexerChain:              "base",
		DEXScreenerChainID:        "base",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006",
		PopularTokens: []string{
			"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // USDC
			"0xd9aAEc86B65D86f6A7B630E7ee733E0511C2758C", // AERO
			"0x4200000000000000000000000000000000000006", // WETH
			"0x50c5725949A6F0c72E6C4a641F8290314933B0cF", // PRIME
		},
	}
	Ethereum = entity.NetworkDefinition{
		ChainID:      1,
		Name:         "Ethereum",
		Identifier:   "ethereum",
		NativeName:   "Ethereum",
		NativeSymbol: "ETH",
		Decimals:     18,
		RPCURLs: []string{
			"https://eth.llamarpc.com",
			"https://rpc.ankr.com/eth",
			"https://1rpc.io/eth",
		},
		ExplorerAPIURL:            "https://api.etherscan.io/api",
		IndexerChain:              "eth",
		DEXScreenerChainID:        "ethereum",
		WrappedNativeTokenAddress: "0xC02aaA39b223FE8D0A0e8e4F27ead9083C756Cc2",
		PopularTokens: []string{
			"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", // USDC
			"0xC02aaA39b223FE8D0A0e8e4F27ead9083C756Cc2", // WETH
			"0xdAC17F958D2ee523a2206206994597C13D831ec7", // USDT
			"0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", // UNI
		},
	}
	Optimism = entity.NetworkDefinition{
		ChainID:      10,
		Name:         "Optimism",
		Identifier:   "optimism",
		NativeName:   "Ethereum",
		NativeSymbol: "ETH",
		Decimals:     18,
		RPCURLs: []string{
			"https://mainnet.optimism.io",
			"https://optimism.publicrpc.com",
			"https://rpc.ankr.com/optimism",
		},
		ExplorerAPIURL:            "https://api-optimistic.etherscan.io/api",
		IndexerChain:              "optimism",
		DEXScreenerChainID:        "optimism",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006",
		PopularTokens: []string{
			"0x7F5c764cBc14f9669B88837ca1490cCa17c31607", // USDC
			"0x4200000000000000000000000000000000000006", // WETH
			"0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", // USDT
		},
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:      42161,
		Name:         "Arbitrum",
		Identifier:   "arbitrum",
		NativeName:   "Ethereum",
		NativeSymbol: "ETH",
		Decimals:     18,
		RPCURLs: []string{
			"https://arb1.arbitrum.io/rpc",
			"https://rpc.ankr.com/arbitrum",
			"https://1rpc.io/arb",
		},
		ExplorerAPIURL:            "https://api.arbiscan.io/api",
		IndexerChain:              "arbitrum",
		DEXScreenerChainID:        "arbitrum",
		WrappedNativeTokenAddress: "0x82aF49447980E8B74B37a2edffeE8f4A9fEbc1Cc",
		PopularTokens: []string{
			"0xFF970A61A04b1cA14834A43f5dE4533eBDDB5F8a", // USDC
			"0x82aF49447980E8B74B37a2edffeE8f4A9fEbc1Cc", // WETH
			"0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", // USDT
		},
	}
	Polygon = entity.NetworkDefinition{
		ChainID:      137,
		Name:         "Polygon",
		Identifier:   "polygon",
		NativeName:   "Matic",
		NativeSymbol: "MATIC",
		Decimals:     18,
		RPCURLs: []string{
			"https://polygon-rpc.com",
			"https://rpc.ankr.com/polygon",
			"https://1rpc.io/matic",
		},
		ExplorerAPIURL:            "https://api.polygonscan.com/api",
		IndexerChain:              "polygon",
		DEXScreenerChainID:        "polygon",
		WrappedNativeTokenAddress: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
		PopularTokens: []string{
			"0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", // USDC
			"0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", // WETH
			"0xc2132D05D31c914a87C6611C10748AEb04B58e8F", // USDT
		},
	}
)

// ethereumRPCOverrideEnv replaces the first Ethereum endpoint when set (e.g. a private Alchemy URL).
const ethereumRPCOverrideEnv = "ETHEREUM_RPC_URL"

// NetworkDefinitionProvider is the static chain registry.
type NetworkDefinitionProvider struct {
	logger  port.Logger
	order   []string
	defsMap map[string]entity.NetworkDefinition
}

// NewNetworkDefinitionProvider creates the registry with the built-in chains.
// overrides replaces the RPC endpoint list of a chain (keyed by identifier) when non-empty.
func NewNetworkDefinitionProvider(log port.Logger, overrides map[string][]string) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:  log,
		defsMap: make(map[string]entity.NetworkDefinition),
	}

	for _, def := range []entity.NetworkDefinition{Base, Ethereum, Optimism, Arbitrum, Polygon} {
		def.RPCURLs = append([]string(nil), def.RPCURLs...)
		def.PopularTokens = append([]string(nil), def.PopularTokens...)

		if def.Identifier == Ethereum.Identifier {
			if url := os.Getenv(ethereumRPCOverrideEnv); url != "" {
				def.RPCURLs[0] = url
			}
		}
		if urls, ok := overrides[def.Identifier]; ok && len(urls) > 0 {
			def.RPCURLs = append([]string(nil), urls...)
			p.logger.Debug("RPC endpoints overridden from config", "network", def.Identifier, "count", len(urls))
		}

		p.order = append(p.order, def.Identifier)
		p.defsMap[def.Identifier] = def
	}

	p.logger.Info(fmt.Sprintf("NetworkDefinitionProvider initialized. Supported networks: %d", len(p.order)))
	return p
}

// GetAllNetworkDefinitions returns the supported network definitions in registry order.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defs := make([]entity.NetworkDefinition, 0, len(p.order))
	for _, id := range p.order {
		defs = append(defs, p.defsMap[id])
	}
	return defs
}

// GetNetworkDefinitionByName returns a specific network definition by its identifier.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	def, ok := p.defsMap[identifier]
	return def, ok
}

// GetNetworkDefinitionByChainID returns a specific network definition by its chain ID.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, id := range p.order {
		if def := p.defsMap[id]; def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// Keys returns the supported chain keys in registry order.
func (p *NetworkDefinitionProvider) Keys() []string {
	return append([]string(nil), p.order...)
}
