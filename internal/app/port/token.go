package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// TokenProvider defines the interface for fetching token definitions.
type TokenProvider interface {
	// GetTokensByNetwork returns a map of network identifier to the tokens listed for it.
	GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error)
}

// TokenPriceService is a best-effort price and metadata lookup.
// A nil result means "unknown", never an error.
type TokenPriceService interface {
	GetTokenPrice(ctx context.Context, tokenAddress string, chainKey string) *float64
	// GetTokenPrices prices many tokens of one chain. Keys are lower-cased addresses; unknown prices are absent.
	GetTokenPrices(ctx context.Context, chainKey string, tokenAddresses []string) map[string]float64
	GetTokenMetadata(ctx context.Context, tokenAddress string, chainKey string) *entity.TokenMetadata
}
