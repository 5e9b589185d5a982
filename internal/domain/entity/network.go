package entity

import "fmt"

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID                   uint64   `json:"chainId" yaml:"chainId"`
	Name                      string   `json:"name" yaml:"name"`
	Identifier                string   `json:"identifier" yaml:"identifier"` // ключ сети: "base", "ethereum", ...
	NativeName                string   `json:"nativeName" yaml:"nativeName"`
	NativeSymbol              string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals                  uint8    `json:"decimals" yaml:"decimals"`
	RPCURLs                   []string `json:"rpcUrls" yaml:"rpcUrls"` // ordered, first one is tried first
	ExplorerAPIURL            string   `json:"explorerApiUrl,omitempty" yaml:"explorerApiUrl,omitempty"`
	IndexerChain              string   `json:"indexerChain,omitempty" yaml:"indexerChain,omitempty"`
	DEXScreenerChainID        string   `json:"dexScreenerChainId,omitempty" yaml:"dexScreenerChainId,omitempty"`
	PopularTokens             []string `json:"popularTokens,omitempty" yaml:"popularTokens,omitempty"`
	WrappedNativeTokenAddress string   `json:"wrappedNativeTokenAddress,omitempty" yaml:"wrappedNativeTokenAddress,omitempty"`
}

// UnsupportedChainError is returned when a chain key is not present in the registry.
type UnsupportedChainError struct {
	ChainKey string
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("unsupported chain: %s", e.ChainKey)
}
