package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// BlockchainClient defines the interface for interacting with a blockchain network.
type BlockchainClient interface {
	// GetBalances fetches native and token balances in a single JSON-RPC batch.
	// Per-item failures are reported in BalanceResultItem.Error.
	GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)

	// GetTokenMetadata reads decimals, name and symbol of an ERC-20 contract.
	GetTokenMetadata(ctx context.Context, tokenAddress string) (entity.TokenMetadata, error)

	// IsContract reports whether the address has deployed code.
	IsContract(ctx context.Context, address string) (bool, error)

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all supported network definitions in registry order.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a network definition by its identifier (chain key).
	// Возвращает определение и true, если найдено, иначе false.
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}

// BlockchainClientProvider hands out cached clients per chain key.
// Unknown keys yield *entity.UnsupportedChainError.
type BlockchainClientProvider interface {
	GetClient(chainKey string) (BlockchainClient, error)
}
