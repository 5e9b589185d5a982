package utils

import (
	"fmt"
	"os"

	"portfolio_tracker/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadTokensFromJSON читает JSON-файл со списком токенов (массив TokenInfo).
// Entries are returned as listed; validation is up to the caller.
func LoadTokensFromJSON(filePath string) ([]entity.TokenInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file %s: %w", filePath, err)
	}

	var tokens []entity.TokenInfo
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tokens from %s: %w", filePath, err)
	}
	return tokens, nil
}
