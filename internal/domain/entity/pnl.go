package entity

// TradeSide is the direction of a trade execution.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// TradeExecution is a single buy or sell derived from a transaction.
type TradeExecution struct {
	Hash        string    `json:"hash"`
	Type        TradeSide `json:"type"`
	Quantity    float64   `json:"quantity"`
	PriceAtTime float64   `json:"priceAtTime"`
	TotalValue  float64   `json:"totalValue"`
	Timestamp   int64     `json:"timestamp"`
}

// PositionKey identifies a trade group: one token on one chain.
type PositionKey struct {
	TokenAddress string
	ChainID      string
}

// TokenTrade is the open position of one token on one chain.
type TokenTrade struct {
	Symbol               string           `json:"symbol"`
	TokenAddress         string           `json:"tokenAddress"`
	ChainID              string           `json:"chainId"`
	Quantity             float64          `json:"quantity"`
	AverageEntryPrice    float64          `json:"averageEntryPrice"`
	CurrentPrice         float64          `json:"currentPrice"`
	CurrentValue         float64          `json:"currentValue"`
	TotalCost            float64          `json:"totalCost"`
	UnrealizedPNL        float64          `json:"unrealizedPNL"`
	UnrealizedPNLPercent float64          `json:"unrealizedPNLPercent"`
	Trades               []TradeExecution `json:"trades"`
}

// PortfolioPNL aggregates PNL across open positions.
type PortfolioPNL struct {
	TotalValue           float64      `json:"totalValue"`
	TotalCost            float64      `json:"totalCost"`
	UnrealizedPNL        float64      `json:"unrealizedPNL"`
	UnrealizedPNLPercent float64      `json:"unrealizedPNLPercent"`
	RealizedPNL          float64      `json:"realizedPNL"`
	Tokens               []TokenTrade `json:"tokens"`
}
