package analytics

import (
	"math"
	"strconv"
	"strings"

	"portfolio_tracker/internal/domain/entity"
)

var (
	stablecoinSymbols = symbolSet("USDC", "USDT", "DAI", "USDP", "FRAX", "cUSDC", "gUSDC")
	nativeSymbols     = symbolSet("ETH", "WETH", "MATIC", "WMATIC", "ARB", "OP")
	defiSymbols       = symbolSet("UNI", "AAVE", "COMP", "LIDO", "MKR", "CRV", "SUSHI", "CURVE")
)

// symbolSet is keyed by upper-cased symbol so lookups are case-insensitive.
func symbolSet(symbols ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[strings.ToUpper(s)] = struct{}{}
	}
	return set
}

// holdingAmount is the formatted token balance; unparseable balances count as zero.
func holdingAmount(h entity.TokenHolding) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(h.BalanceFormatted), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// CalculateDiversityScore maps the Herfindahl-Hirschman index of the balance shares onto 0..100.
// 0 means everything sits in one asset, 100 a perfectly even split.
// Shares are taken over formatted token balances, not USD value.
func CalculateDiversityScore(holdings []entity.TokenHolding) float64 {
	n := len(holdings)
	if n == 0 {
		return 0
	}

	var total float64
	for _, h := range holdings {
		total += holdingAmount(h)
	}
	if total <= 0 || n == 1 {
		return 0
	}

	var hhi float64
	for _, h := range holdings {
		share := holdingAmount(h) / total
		hhi += share * share
	}

	score := (1 - hhi) / (1 - 1/float64(n)) * 100
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(100, score))
}

// CategorizeAssets splits holdings into stablecoins, native assets, DeFi tokens and the rest.
func CategorizeAssets(holdings []entity.TokenHolding) entity.AssetCategories {
	cats := entity.AssetCategories{
		Stablecoins: []entity.TokenHolding{},
		Native:      []entity.TokenHolding{},
		DeFi:        []entity.TokenHolding{},
		Other:       []entity.TokenHolding{},
	}
	for _, h := range holdings {
		sym := strings.ToUpper(h.Symbol)
		switch {
		case inSet(stablecoinSymbols, sym):
			cats.Stablecoins = append(cats.Stablecoins, h)
		case inSet(nativeSymbols, sym):
			cats.Native = append(cats.Native, h)
		case inSet(defiSymbols, sym):
			cats.DeFi = append(cats.DeFi, h)
		default:
			cats.Other = append(cats.Other, h)
		}
	}
	return cats
}

func inSet(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// AssessPortfolioRisk scores stablecoin allocation, concentration and holding count.
// The stablecoin ratio counts holdings; an empty list has no ratio and skips that check.
func AssessPortfolioRisk(holdings []entity.TokenHolding) entity.RiskAssessment {
	var (
		score   float64
		factors = []string{}
	)

	if n := len(holdings); n > 0 {
		stableRatio := float64(len(CategorizeAssets(holdings).Stablecoins)) / float64(n)
		switch {
		case stableRatio > 0.5:
			score += 10
		case stableRatio < 0.1:
			score += 40
			factors = append(factors, "Low stablecoin allocation")
		}
	}

	diversity := CalculateDiversityScore(holdings)
	switch {
	case diversity < 20:
		score += 40
		factors = append(factors, "Highly concentrated portfolio")
	case diversity > 70:
		score += 10
		factors = append(factors, "Well diversified")
	}

	switch n := len(holdings); {
	case n > 20:
		score += 15
		factors = append(factors, "Many holdings to manage")
	case n < 3:
		score += 35
		factors = append(factors, "Very few holdings")
	}

	score = math.Min(100, score)
	level := entity.RiskLow
	switch {
	case score > 70:
		level = entity.RiskHigh
	case score > 40:
		level = entity.RiskMedium
	}

	return entity.RiskAssessment{
		Score:          score,
		Level:          level,
		Factors:        factors,
		DiversityScore: diversity,
	}
}
