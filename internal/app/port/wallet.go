package port

import "portfolio_tracker/internal/domain/entity"

// WalletProvider defines the interface for fetching tracked wallet addresses.
type WalletProvider interface {
	GetWallets() ([]entity.Wallet, error)
}
