package port

import (
	"context"

	dex_types "portfolio_tracker/internal/entity"
)

// ExplorerClient talks to an Etherscan-family block explorer API.
type ExplorerClient interface {
	// Enabled is false when no API key is configured.
	Enabled() bool
	GetTransactions(ctx context.Context, apiURL string, walletAddress string) ([]dex_types.EtherscanTransaction, error)
}

// IndexerClient talks to the token indexing service (transfers, prices, metadata).
type IndexerClient interface {
	// Enabled is false when no API key is configured.
	Enabled() bool
	GetERC20Transfers(ctx context.Context, chain string, walletAddress string, limit int) ([]dex_types.MoralisTransfer, error)
	GetTokenPrice(ctx context.Context, chain string, tokenAddress string) (*dex_types.MoralisPrice, error)
	GetTokenMetadata(ctx context.Context, chain string, tokenAddress string) (*dex_types.MoralisTokenMetadata, error)
}

// DEXScreenerClient defines the interface for interacting with the DEX Screener API.
type DEXScreenerClient interface {
	GetTokenPairsByAddresses(ctx context.Context, dexscreenerChainID string, tokenAddresses []string) ([]dex_types.PairData, error)
}
