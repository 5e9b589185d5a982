package tokenloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultTokenDirectoryPath is where token lists live, one <network identifier>.json per network.
const DefaultTokenDirectoryPath = "data/tokens"

// TokenFileLoader implements the port.TokenProvider interface.
type TokenFileLoader struct {
	tokenDirPath string
	logger       port.Logger
}

// NewTokenLoader creates a new TokenFileLoader. An empty dir selects DefaultTokenDirectoryPath.
func NewTokenLoader(dir string, log port.Logger) *TokenFileLoader {
	if dir == "" {
		dir = DefaultTokenDirectoryPath
	}
	return &TokenFileLoader{tokenDirPath: dir, logger: log}
}

// GetTokensByNetwork reads <identifier>.json for every given network and keeps the entries whose
// chain id and address are valid. The result is keyed by network identifier.
// Отсутствующая директория - не ошибка: просто нет дополнительных токенов.
func (l *TokenFileLoader) GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	tokensByNetwork := make(map[string][]entity.TokenInfo)

	files, err := os.ReadDir(l.tokenDirPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("Token directory does not exist, no tokens will be loaded", "path", l.tokenDirPath)
			return tokensByNetwork, nil
		}
		return nil, fmt.Errorf("failed to read token directory %s: %w", l.tokenDirPath, err)
	}

	activeNetworksMap := make(map[string]entity.NetworkDefinition, len(activeNetworkDefs))
	for _, netDef := range activeNetworkDefs {
		activeNetworksMap[netDef.Identifier] = netDef
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}

		networkIdentifierFromFile := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		networkDef, isActive := activeNetworksMap[networkIdentifierFromFile]
		if !isActive {
			continue
		}

		filePath := filepath.Join(l.tokenDirPath, file.Name())
		tokens, err := l.readFile(filePath, networkDef)
		if err != nil {
			// битый файл не ломает загрузку остальных сетей
			l.logger.Warn("Failed to load token file, skipping file.", "path", filePath, "error", err)
			continue
		}
		if len(tokens) > 0 {
			tokensByNetwork[networkDef.Identifier] = append(tokensByNetwork[networkDef.Identifier], tokens...)
			l.logger.Debug("Loaded tokens for network from file",
				"network_identifier", networkDef.Identifier,
				"file", file.Name(),
				"count", len(tokens))
		}
	}
	return tokensByNetwork, nil
}

func (l *TokenFileLoader) readFile(path string, networkDef entity.NetworkDefinition) ([]entity.TokenInfo, error) {
	tokensInFile, err := utils.LoadTokensFromJSON(path)
	if err != nil {
		return nil, err
	}

	valid := make([]entity.TokenInfo, 0, len(tokensInFile))
	for _, token := range tokensInFile {
		if token.ChainID != networkDef.ChainID {
			l.logger.Warn("Token has mismatched ChainID in file, skipping token.",
				"file", path, "token_symbol", token.Symbol, "token_address", token.Address,
				"token_chain_id", token.ChainID, "expected_chain_id", networkDef.ChainID)
			continue
		}
		if !common.IsHexAddress(token.Address) {
			l.logger.Warn("Token has invalid address in file, skipping token.", "file", path, "token_address", token.Address)
			continue
		}
		valid = append(valid, token)
	}
	return valid, nil
}
