package provider

import (
	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

type walletProviderImpl struct {
	source port.WalletProvider
	name   string
	logger port.Logger
}

// NewWalletProvider wraps source with logging. name identifies the source in log lines (usually the file path).
func NewWalletProvider(source port.WalletProvider, name string, logger port.Logger) port.WalletProvider {
	return &walletProviderImpl{source: source, name: name, logger: logger}
}

// GetWallets loads wallet addresses from the wrapped source.
func (p *walletProviderImpl) GetWallets() ([]entity.Wallet, error) {
	p.logger.Debug("Loading wallets", "source", p.name)
	wallets, err := p.source.GetWallets()
	if err != nil {
		p.logger.Error("Failed to load wallets", "source", p.name, "error", err)
		return nil, err
	}
	p.logger.Info("Wallets loaded successfully", "count", len(wallets), "source", p.name)
	return wallets, nil
}
