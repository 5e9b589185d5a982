package utils

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBigInt(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{"nil", nil, 18, "0"},
		{"zero", big.NewInt(0), 18, "0"},
		{"one ether", new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), 18, "1"},
		{"fraction", big.NewInt(1234500000000000000), 18, "1.2345"},
		{"usdc", big.NewInt(2500000), 6, "2.5"},
		{"dust", big.NewInt(100000000000000), 18, "0.0001"},
		{"no decimals", big.NewInt(42), 0, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatBigInt(tt.amount, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScaleDecimalString(t *testing.T) {
	d, err := ScaleDecimalString("2000000000000", 18)
	require.NoError(t, err)
	assert.Equal(t, "0.000002", d.String())

	d, err = ScaleDecimalString("", 18)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ScaleDecimalString("abc", 18)
	assert.Error(t, err)
}

func TestParseFloatOrZero(t *testing.T) {
	assert.Equal(t, 1.5, ParseFloatOrZero("1.5"))
	assert.Equal(t, 0.0, ParseFloatOrZero(""))
	assert.Equal(t, 0.0, ParseFloatOrZero("n/a"))
}

func TestCalculateValueUSD(t *testing.T) {
	v, err := CalculateValueUSD(big.NewInt(2500000), 6, 2)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-9)

	_, err = CalculateValueUSD(nil, 6, 2)
	assert.Error(t, err)
}

func TestBatchStrings(t *testing.T) {
	batches := BatchStrings([]string{"a", "b", "c", "d", "e"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches)
	assert.Empty(t, BatchStrings(nil, 2))
}

func TestSplitCSVAndCapitalize(t *testing.T) {
	assert.Equal(t, []string{"base", "ethereum"}, SplitCSV(" base, ,ethereum "))
	assert.Nil(t, SplitCSV(""))
	assert.Equal(t, "Base", Capitalize("base"))
	assert.Equal(t, "", Capitalize(""))
}

func TestCollectOK(t *testing.T) {
	results := []Result[int]{
		Ok(1),
		Empty[int](),
		Fail[int](errors.New("boom")),
		Ok(4),
	}

	var failed []int
	got := CollectOK(results, func(i int, err error) {
		failed = append(failed, i)
	})

	assert.Equal(t, []int{1, 4}, got)
	assert.Equal(t, []int{2}, failed)
	assert.Equal(t, []int{1, 4}, CollectOK(results, nil))
}
