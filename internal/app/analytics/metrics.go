package analytics

import (
	"time"

	"portfolio_tracker/internal/domain/entity"
)

// Lookback windows of the portfolio metrics.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day

	// SnapshotRetention is how long snapshots are kept.
	SnapshotRetention = 90 * Day
)

// PercentChange returns the change from previous to current in percent, 0 when previous is 0.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// baselineFor returns the latest snapshot taken at or before now-window. A wallet tracked for
// less than the window falls back to its earliest snapshot inside the window.
// Snapshots are in ascending time order.
func baselineFor(snapshots []entity.PortfolioSnapshot, now time.Time, window time.Duration) (entity.PortfolioSnapshot, bool) {
	cutoff := now.Add(-window).UnixMilli()
	var (
		found entity.PortfolioSnapshot
		ok    bool
	)
	for _, s := range snapshots {
		if s.Timestamp > cutoff {
			if !ok {
				return s, true
			}
			break
		}
		found, ok = s, true
	}
	return found, ok
}

func changeOver(snapshots []entity.PortfolioSnapshot, current float64, now time.Time, window time.Duration) (float64, float64) {
	base, ok := baselineFor(snapshots, now, window)
	if !ok {
		return 0, 0
	}
	return current - base.TotalValueUSD, PercentChange(current, base.TotalValueUSD)
}

// GeneratePortfolioMetrics computes value changes over the lookback windows, trade statistics
// and best/worst performing symbols. No snapshots yields zero metrics.
func GeneratePortfolioMetrics(snapshots []entity.PortfolioSnapshot, trades []entity.TradeRecord, now time.Time) entity.PortfolioMetrics {
	var m entity.PortfolioMetrics
	if len(snapshots) == 0 {
		return m
	}

	current := snapshots[len(snapshots)-1].TotalValueUSD
	first := snapshots[0].TotalValueUSD

	m.TotalValueUSD = current
	m.DayChange, m.DayChangePercent = changeOver(snapshots, current, now, Day)
	m.WeekChange, m.WeekChangePercent = changeOver(snapshots, current, now, Week)
	m.MonthChange, m.MonthChangePercent = changeOver(snapshots, current, now, Month)
	m.AllTimeChange = current - first
	m.AllTimeChangePercent = PercentChange(current, first)

	m.TotalTrades = len(trades)
	if len(trades) > 0 {
		wins := 0
		best, worst := trades[0], trades[0]
		for _, t := range trades {
			if t.GainLoss > 0 {
				wins++
			}
			if t.GainLossPercent > best.GainLossPercent {
				best = t
			}
			if t.GainLossPercent < worst.GainLossPercent {
				worst = t
			}
		}
		m.WinRate = float64(wins) / float64(len(trades)) * 100
		m.BestTrade = entity.SymbolChange{Symbol: best.Symbol, Percent: best.GainLossPercent}
		m.WorstTrade = entity.SymbolChange{Symbol: worst.Symbol, Percent: worst.GainLossPercent}
	}

	m.BestPerformer, m.WorstPerformer = performers(snapshots)
	return m
}

// performers tracks each symbol's value across snapshots. Only symbols seen at least twice count;
// best must be a gain and worst a loss, otherwise they stay empty.
func performers(snapshots []entity.PortfolioSnapshot) (entity.SymbolChange, entity.SymbolChange) {
	var order []string
	series := make(map[string][]float64)
	for _, s := range snapshots {
		for _, h := range s.Holdings {
			if _, seen := series[h.Symbol]; !seen {
				order = append(order, h.Symbol)
			}
			series[h.Symbol] = append(series[h.Symbol], h.ValueUSD)
		}
	}

	var best, worst entity.SymbolChange
	for _, sym := range order {
		values := series[sym]
		if len(values) < 2 {
			continue
		}
		change := PercentChange(values[len(values)-1], values[0])
		if change > best.Percent {
			best = entity.SymbolChange{Symbol: sym, Percent: change}
		}
		if change < worst.Percent {
			worst = entity.SymbolChange{Symbol: sym, Percent: change}
		}
	}
	return best, worst
}

// BuildSnapshot values priced holdings into a snapshot. Unpriced holdings count as zero.
func BuildSnapshot(holdings []entity.TokenHolding, now time.Time) entity.PortfolioSnapshot {
	snap := entity.PortfolioSnapshot{
		Timestamp: now.UnixMilli(),
		Holdings:  make([]entity.SnapshotHolding, 0, len(holdings)),
	}
	for _, h := range holdings {
		var value float64
		if h.BalanceUSD != nil {
			value = *h.BalanceUSD
		}
		snap.TotalValueUSD += value
		snap.Holdings = append(snap.Holdings, entity.SnapshotHolding{
			Address:          h.Address,
			Symbol:           h.Symbol,
			BalanceFormatted: h.BalanceFormatted,
			ValueUSD:         value,
		})
	}
	return snap
}

// PruneSnapshots keeps snapshots newer than now-retention, preserving order.
func PruneSnapshots(snapshots []entity.PortfolioSnapshot, now time.Time, retention time.Duration) []entity.PortfolioSnapshot {
	cutoff := now.Add(-retention).UnixMilli()
	kept := make([]entity.PortfolioSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Timestamp > cutoff {
			kept = append(kept, s)
		}
	}
	return kept
}

// ClosedTrades derives closed trade records from trade groups whose position went to zero or below.
// Entry is the average buy price, exit the average sell price.
func ClosedTrades(groups []TradeGroup, symbol SymbolLookup) []entity.TradeRecord {
	var out []entity.TradeRecord
	for _, g := range groups {
		if CalculateCurrentHoldings(g.Trades) > 0 {
			continue
		}
		var buyQty, sellQty, sellValue float64
		var entryTime, exitTime int64
		for _, t := range g.Trades {
			if t.Type == entity.TradeBuy {
				buyQty += t.Quantity
				if entryTime == 0 || t.Timestamp < entryTime {
					entryTime = t.Timestamp
				}
				continue
			}
			sellQty += t.Quantity
			sellValue += t.TotalValue
			if t.Timestamp > exitTime {
				exitTime = t.Timestamp
			}
		}
		if buyQty == 0 || sellQty == 0 {
			continue
		}

		entry := CalculateAverageEntryPrice(g.Trades)
		exit := sellValue / sellQty
		gain := (exit - entry) * buyQty

		sym := shortAddress(g.Key.TokenAddress)
		if symbol != nil {
			if s := symbol(g.Key); s != "" {
				sym = s
			}
		}
		out = append(out, entity.TradeRecord{
			Symbol:          sym,
			EntryPrice:      entry,
			ExitPrice:       exit,
			Quantity:        buyQty,
			EntryTime:       entryTime,
			ExitTime:        exitTime,
			GainLoss:        gain,
			GainLossPercent: PercentChange(exit, entry),
		})
	}
	return out
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
