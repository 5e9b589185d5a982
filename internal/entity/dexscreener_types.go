package entity

// DEXTokenPair is the wrapped form of a DEX Screener token response.
type DEXTokenPair struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []PairData `json:"pairs"`
}

// PairData contains the parts of a DEX Screener trading pair used for pricing.
type PairData struct {
	ChainID     string        `json:"chainId"`
	DexID       string        `json:"dexId"`
	PairAddress string        `json:"pairAddress"`
	BaseToken   DEXToken      `json:"baseToken"`
	QuoteToken  DEXToken      `json:"quoteToken"`
	PriceUsd    string        `json:"priceUsd"`
	Liquidity   *DEXLiquidity `json:"liquidity"` // может быть null
	Info        *PairInfo     `json:"info,omitempty"`
}

// DEXToken represents a token in a trading pair.
type DEXToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// DEXLiquidity represents the liquidity information for a pair.
type DEXLiquidity struct {
	Usd   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// PairInfo carries optional token presentation data.
type PairInfo struct {
	ImageURL string `json:"imageUrl"`
}
