package entity

// RiskLevel is the bucket of a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// AssetCategories splits holdings by asset class.
type AssetCategories struct {
	Stablecoins []TokenHolding `json:"stablecoins"`
	Native      []TokenHolding `json:"native"`
	DeFi        []TokenHolding `json:"defi"`
	Other       []TokenHolding `json:"other"`
}

// RiskAssessment is the result of the portfolio risk heuristic.
type RiskAssessment struct {
	Score          float64   `json:"score"`
	Level          RiskLevel `json:"level"`
	Factors        []string  `json:"factors"`
	DiversityScore float64   `json:"diversityScore"`
}
