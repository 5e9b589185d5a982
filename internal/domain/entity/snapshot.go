package entity

// SnapshotHolding is one asset line of a portfolio snapshot.
type SnapshotHolding struct {
	Address          string  `json:"address"`
	Symbol           string  `json:"symbol"`
	BalanceFormatted string  `json:"balanceFormatted"`
	ValueUSD         float64 `json:"valueUSD"`
}

// PortfolioSnapshot is a point-in-time valuation of a wallet. Timestamp is in milliseconds.
type PortfolioSnapshot struct {
	Timestamp     int64             `json:"timestamp"`
	TotalValueUSD float64           `json:"totalValueUSD"`
	Holdings      []SnapshotHolding `json:"holdings"`
}

// TradeRecord is a closed trade used by portfolio metrics.
type TradeRecord struct {
	Symbol          string  `json:"symbol"`
	EntryPrice      float64 `json:"entryPrice"`
	ExitPrice       float64 `json:"exitPrice"`
	Quantity        float64 `json:"quantity"`
	EntryTime       int64   `json:"entryTime"`
	ExitTime        int64   `json:"exitTime"`
	GainLoss        float64 `json:"gainLoss"`
	GainLossPercent float64 `json:"gainLossPercent"`
}

// SymbolChange is a symbol with a percent change. An empty symbol means "none".
type SymbolChange struct {
	Symbol  string  `json:"symbol"`
	Percent float64 `json:"percent"`
}

// PortfolioMetrics summarises a wallet's snapshots and closed trades.
type PortfolioMetrics struct {
	TotalValueUSD        float64      `json:"totalValueUSD"`
	DayChange            float64      `json:"dayChange"`
	DayChangePercent     float64      `json:"dayChangePercent"`
	WeekChange           float64      `json:"weekChange"`
	WeekChangePercent    float64      `json:"weekChangePercent"`
	MonthChange          float64      `json:"monthChange"`
	MonthChangePercent   float64      `json:"monthChangePercent"`
	AllTimeChange        float64      `json:"allTimeChange"`
	AllTimeChangePercent float64      `json:"allTimeChangePercent"`
	WinRate              float64      `json:"winRate"`
	TotalTrades          int          `json:"totalTrades"`
	BestTrade            SymbolChange `json:"bestTrade"`
	WorstTrade           SymbolChange `json:"worstTrade"`
	BestPerformer        SymbolChange `json:"bestPerformer"`
	WorstPerformer       SymbolChange `json:"worstPerformer"`
}
