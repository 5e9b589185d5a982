package analytics

import (
	"sort"
	"strconv"
	"strings"

	"portfolio_tracker/internal/domain/entity"
)

// ReceivePlaceholderPrice is the unit price assumed for received tokens. There is no cost data for them.
const ReceivePlaceholderPrice = 0.01

// DefaultPositionSymbol labels a position whose token metadata is unknown.
const DefaultPositionSymbol = "TOKEN"

// TradeGroup is the ordered trade list of one token on one chain.
type TradeGroup struct {
	Key    entity.PositionKey
	Trades []entity.TradeExecution
}

// ParseTradesFromTransactions turns swap and receive transactions carrying token data into trade executions,
// grouped by token and chain in order of first appearance. Receives are buys, swaps are sells.
func ParseTradesFromTransactions(txs []entity.TransactionRecord) []TradeGroup {
	index := make(map[entity.PositionKey]int)
	var groups []TradeGroup

	for _, tx := range txs {
		if tx.Type != entity.TransactionSwap && tx.Type != entity.TransactionReceive {
			continue
		}
		if tx.TokenAddress == "" || tx.TokenAmount == "" {
			continue
		}
		quantity, err := strconv.ParseFloat(strings.TrimSpace(tx.TokenAmount), 64)
		if err != nil {
			continue
		}

		side := entity.TradeSell
		price := ReceivePlaceholderPrice
		if tx.Type == entity.TransactionReceive {
			side = entity.TradeBuy
		} else {
			price = 0
			if value, err := strconv.ParseFloat(tx.ValueFormatted, 64); err == nil && quantity != 0 {
				price = value / quantity
			}
		}

		key := entity.PositionKey{TokenAddress: tx.TokenAddress, ChainID: tx.ChainID}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, TradeGroup{Key: key})
		}
		groups[i].Trades = append(groups[i].Trades, entity.TradeExecution{
			Hash:        tx.Hash,
			Type:        side,
			Quantity:    quantity,
			PriceAtTime: price,
			TotalValue:  quantity * price,
			Timestamp:   tx.Timestamp,
		})
	}
	return groups
}

// CalculateAverageEntryPrice is the cost-weighted average price over buys only.
func CalculateAverageEntryPrice(trades []entity.TradeExecution) float64 {
	var cost, quantity float64
	for _, t := range trades {
		if t.Type != entity.TradeBuy {
			continue
		}
		cost += t.TotalValue
		quantity += t.Quantity
	}
	if quantity <= 0 {
		return 0
	}
	return cost / quantity
}

// CalculateCurrentHoldings is the sum of buys minus the sum of sells.
func CalculateCurrentHoldings(trades []entity.TradeExecution) float64 {
	var holdings float64
	for _, t := range trades {
		if t.Type == entity.TradeBuy {
			holdings += t.Quantity
		} else {
			holdings -= t.Quantity
		}
	}
	return holdings
}

// CalculateRealizedPNL walks the trades in time order. Each sell realizes its value minus the
// quantity held before it, valued at one unit of account per token.
func CalculateRealizedPNL(trades []entity.TradeExecution) float64 {
	sorted := make([]entity.TradeExecution, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	var quantity, pnl float64
	for _, t := range sorted {
		if t.Type == entity.TradeBuy {
			quantity += t.Quantity
			continue
		}
		cost := quantity // one unit of account per token held
		pnl += t.TotalValue - cost
		quantity -= t.Quantity
	}
	return pnl
}

// PriceLookup returns the current price of a position, nil when unknown.
type PriceLookup func(key entity.PositionKey) *float64

// SymbolLookup returns a display symbol for a position, "" when unknown.
type SymbolLookup func(key entity.PositionKey) string

// BuildPortfolioPNL aggregates trade groups into open positions. Closed positions (holdings <= 0)
// contribute only to RealizedPNL; positions without a current price are left out.
func BuildPortfolioPNL(groups []TradeGroup, price PriceLookup, symbol SymbolLookup) entity.PortfolioPNL {
	result := entity.PortfolioPNL{Tokens: []entity.TokenTrade{}}

	for _, g := range groups {
		avgEntry := CalculateAverageEntryPrice(g.Trades)
		holdings := CalculateCurrentHoldings(g.Trades)

		if holdings <= 0 {
			result.RealizedPNL += CalculateRealizedPNL(g.Trades)
			continue
		}

		current := price(g.Key)
		if current == nil {
			continue
		}

		cost := avgEntry * holdings
		value := *current * holdings
		pnl := value - cost

		sym := DefaultPositionSymbol
		if symbol != nil {
			if s := symbol(g.Key); s != "" {
				sym = s
			}
		}

		result.Tokens = append(result.Tokens, entity.TokenTrade{
			Symbol:               sym,
			TokenAddress:         g.Key.TokenAddress,
			ChainID:              g.Key.ChainID,
			Quantity:             holdings,
			AverageEntryPrice:    avgEntry,
			CurrentPrice:         *current,
			CurrentValue:         value,
			TotalCost:            cost,
			UnrealizedPNL:        pnl,
			UnrealizedPNLPercent: PercentOf(pnl, cost),
			Trades:               g.Trades,
		})
		result.TotalValue += value
		result.TotalCost += cost
	}

	result.UnrealizedPNL = result.TotalValue - result.TotalCost
	result.UnrealizedPNLPercent = PercentOf(result.UnrealizedPNL, result.TotalCost)

	sort.SliceStable(result.Tokens, func(i, j int) bool {
		return result.Tokens[i].UnrealizedPNL > result.Tokens[j].UnrealizedPNL
	})
	return result
}

// PercentOf returns part/base*100, or 0 when base is not positive.
func PercentOf(part, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return part / base * 100
}
