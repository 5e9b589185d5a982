package utils

import (
	"strings"

	dexscreener_entity "portfolio_tracker/internal/entity" // для DEXLiquidity
)

// BatchStrings разбивает срез строк на батчи.
func BatchStrings(items []string, batchSize int) [][]string {
	if batchSize <= 0 {
		batchSize = len(items)
	}
	if len(items) == 0 {
		return [][]string{}
	}

	var batches [][]string
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

// SplitCSV splits a comma separated query value, dropping empty items.
func SplitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SafeDerefFloat64 безопасно разыменовывает указатель и получает float64.
func SafeDerefFloat64(liquidity *dexscreener_entity.DEXLiquidity, getter func(dexscreener_entity.DEXLiquidity) float64) float64 {
	if liquidity == nil {
		return 0.0
	}
	return getter(*liquidity)
}
