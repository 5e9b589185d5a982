package entity

import "math/big"

// TokenInfo holds the details of a specific token, as listed in token files.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TokenMetadata is the ERC-20 metadata of a token contract.
type TokenMetadata struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TokenHolding is a non-zero balance of one asset held by one wallet on one chain.
type TokenHolding struct {
	ChainID          string   `json:"chainId"` // chain key, e.g. "base"
	ChainName        string   `json:"chainName"`
	Address          string   `json:"address"` // contract address or NativeTokenAddress
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Decimals         uint8    `json:"decimals"`
	Amount           *big.Int `json:"-"`
	Balance          string   `json:"balance"`
	BalanceFormatted string   `json:"balanceFormatted"`
	BalanceUSD       *float64 `json:"balanceUSD,omitempty"`
	Logo             string   `json:"logo,omitempty"`
	IsNative         bool     `json:"isNative,omitempty"`
}

// PortfolioValue is the priced total of a set of holdings.
type PortfolioValue struct {
	Total   float64            `json:"total"`
	ByChain map[string]float64 `json:"byChain"`
}
