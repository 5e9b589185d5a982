package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBigInt converts a big.Int value to a human-readable string,
// considering the given number of decimals.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) (string, error) {
	if amount == nil {
		return "0", nil
	}
	if decimals == 0 {
		return amount.String(), nil
	}
	// decimal.String() already drops trailing zeros
	return decimal.NewFromBigInt(amount, -int32(decimals)).String(), nil
}

// ScaleDecimalString parses an integer amount in the smallest unit and scales it down by 10^decimals.
func ScaleDecimalString(raw string, decimals uint8) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", raw, err)
	}
	return d.Shift(-int32(decimals)), nil
}

// ParseFloatOrZero parses a decimal string, returning 0 for empty or malformed input.
func ParseFloatOrZero(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// CalculateValueUSD returns amount/10^decimals * price.
func CalculateValueUSD(amount *big.Int, decimals uint8, priceUSD float64) (float64, error) {
	if amount == nil {
		return 0, fmt.Errorf("amount is nil")
	}
	value := decimal.NewFromBigInt(amount, -int32(decimals)).Mul(decimal.NewFromFloat(priceUSD))
	f, _ := value.Float64()
	return f, nil
}
