package walletloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultWalletFilePath lists the tracked wallets, one address per line.
const DefaultWalletFilePath = "data/wallets.txt"

// WalletFileLoader implements the port.WalletProvider interface by loading wallets from a file.
type WalletFileLoader struct {
	filePath string
	logger   port.Logger
}

// NewWalletFileLoader creates a new WalletFileLoader. An empty path selects DefaultWalletFilePath.
func NewWalletFileLoader(path string, log port.Logger) *WalletFileLoader {
	if path == "" {
		path = DefaultWalletFilePath
	}
	return &WalletFileLoader{filePath: path, logger: log}
}

// GetWallets reads wallet addresses from the file. Blank lines and # comments are ignored,
// malformed addresses are skipped, duplicates are kept once.
func (l *WalletFileLoader) GetWallets() ([]entity.Wallet, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet file %s: %w", l.filePath, err)
	}
	defer file.Close()

	var wallets []entity.Wallet
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "0x") || !common.IsHexAddress(line) {
			l.logger.Warn("Skipping invalid wallet address format", "file", l.filePath, "line_number", lineNum, "address", line)
			continue
		}
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		wallets = append(wallets, entity.Wallet{Address: line})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning wallet file %s: %w", l.filePath, err)
	}
	return wallets, nil
}
