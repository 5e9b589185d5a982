package provider

import (
	"sort"
	"strings"
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

type tokenProviderImpl struct {
	source port.TokenProvider
	logger port.Logger

	mu          sync.Mutex
	tokensCache map[string][]entity.TokenInfo // key: network identifier
}

// NewTokenProvider wraps source with a per-network cache. Token files are read once per network
// for the process lifetime.
func NewTokenProvider(source port.TokenProvider, logger port.Logger) port.TokenProvider {
	return &tokenProviderImpl{
		source:      source,
		logger:      logger,
		tokensCache: make(map[string][]entity.TokenInfo),
	}
}

// GetTokensByNetwork loads the networks that are not cached yet and serves the rest from the cache.
func (p *tokenProviderImpl) GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var missing []entity.NetworkDefinition
	for _, nd := range activeNetworkDefs {
		if _, ok := p.tokensCache[nd.Identifier]; !ok {
			missing = append(missing, nd)
		}
	}

	if len(missing) > 0 {
		p.logger.Debug("Loading tokens from disk", "networks", networkKeys(missing))
		loaded, err := p.source.GetTokensByNetwork(missing)
		if err != nil {
			p.logger.Error("Failed to load tokens", "error", err)
			return nil, err
		}
		for _, nd := range missing {
			// пустой список тоже кэшируем, чтобы не читать диск повторно
			p.tokensCache[nd.Identifier] = loaded[nd.Identifier]
		}
		p.logger.Info("Tokens loaded and cached successfully", "networks_loaded", len(missing))
	}

	out := make(map[string][]entity.TokenInfo, len(activeNetworkDefs))
	for _, nd := range activeNetworkDefs {
		if tokens := p.tokensCache[nd.Identifier]; len(tokens) > 0 {
			out[nd.Identifier] = tokens
		}
	}
	return out, nil
}

func networkKeys(defs []entity.NetworkDefinition) string {
	keys := make([]string, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, d.Identifier)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
