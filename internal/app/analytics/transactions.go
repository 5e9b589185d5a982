package analytics

import (
	"sort"
	"strings"

	"portfolio_tracker/internal/domain/entity"
)

// Function selectors of known router calls.
var swapSelectors = map[string]struct{}{
	"0x3593564c": {}, // Uniswap universal router execute
	"0x414bf389": {}, // Uniswap V3 exactInputSingle
	"0x8803dbee": {}, // Uniswap V2 swapTokensForExactTokens
	"0x7ff36ab5": {}, // Uniswap V2 swapExactETHForTokens
	"0x7c025200": {}, // 1inch swap
	"0x12aa3caf": {}, // 1inch swap v5
}

const approveSelector = "0x095ea7b3"

// DetectTransactionType classifies a transaction by the selector of its call data.
// Plain value transfers (no call data) count as receive.
func DetectTransactionType(input string) entity.TransactionType {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" || input == "0x" {
		return entity.TransactionReceive
	}
	if len(input) < 10 {
		return entity.TransactionOther
	}

	selector := input[:10]
	if _, ok := swapSelectors[selector]; ok {
		return entity.TransactionSwap
	}
	if selector == approveSelector {
		return entity.TransactionApprove
	}
	return entity.TransactionOther
}

// MergeTransactions concatenates the lists in order, keeps the last record seen for each hash
// and sorts the result newest first. Records with equal timestamps keep their merge order.
func MergeTransactions(lists ...[]entity.TransactionRecord) []entity.TransactionRecord {
	index := make(map[string]int)
	merged := make([]entity.TransactionRecord, 0)

	for _, list := range lists {
		for _, tx := range list {
			if i, ok := index[tx.Hash]; ok {
				merged[i] = tx
				continue
			}
			index[tx.Hash] = len(merged)
			merged = append(merged, tx)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})
	return merged
}
