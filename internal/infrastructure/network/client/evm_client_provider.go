package client

import (
	"fmt"
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"

	"go.uber.org/zap"
)

// EVMClientProvider implements port.BlockchainClientProvider.
// One client per chain key, built on first use and kept for the process lifetime.
type EVMClientProvider struct {
	definitions port.NetworkDefinitionProvider
	opts        TransportOptions
	dial        DialFunc
	logger      port.Logger
	zapLogger   *zap.Logger

	mu      sync.Mutex
	clients map[string]*EVMClient
}

// NewEVMClientProvider creates a new EVMClientProvider. dial may be nil.
func NewEVMClientProvider(
	definitions port.NetworkDefinitionProvider,
	opts TransportOptions,
	dial DialFunc,
	log port.Logger,
	zapLogger *zap.Logger,
) *EVMClientProvider {
	return &EVMClientProvider{
		definitions: definitions,
		opts:        opts,
		dial:        dial,
		logger:      log,
		zapLogger:   zapLogger,
		clients:     make(map[string]*EVMClient),
	}
}

// GetClient returns the cached client for chainKey or builds one.
// Unknown keys fail with *entity.UnsupportedChainError.
func (p *EVMClientProvider) GetClient(chainKey string) (port.BlockchainClient, error) {
	netDef, ok := p.definitions.GetNetworkDefinitionByName(chainKey)
	if !ok {
		return nil, &entity.UnsupportedChainError{ChainKey: chainKey}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cl, exists := p.clients[chainKey]; exists {
		return cl, nil
	}

	p.logger.Info("Creating new EVM client", "network", chainKey, "endpoints", len(netDef.RPCURLs))
	cl, err := NewEVMClient(netDef, p.opts, p.dial, p.zapLogger)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", chainKey, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", chainKey, err)
	}
	p.clients[chainKey] = cl
	return cl, nil
}

// Close closes all cached clients.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, cl := range p.clients {
		cl.Close()
		delete(p.clients, k)
	}
}
