package analytics

import (
	"math"
	"strconv"
	"strings"
	"time"

	"portfolio_tracker/internal/domain/entity"
)

// SniperWindow is how soon after launch a first buy counts as sniping.
const SniperWindow = time.Minute

var holderTypeWeights = map[entity.HolderType]float64{
	entity.HolderSmartWallet: 40,
	entity.HolderInsider:     35,
	entity.HolderSniper:      20,
	entity.HolderBot:         15,
	entity.HolderDev:         50,
	entity.HolderRegular:     10,
}

// IdentifyHolderType classifies a holder from its formatted balance, transaction count and whether
// the address is a contract. Rules are checked in order; the first match wins.
func IdentifyHolderType(balanceFormatted string, txCount int, isContract bool) entity.HolderType {
	balance, err := strconv.ParseFloat(strings.TrimSpace(balanceFormatted), 64)
	if err != nil {
		balance = 0
	}

	switch {
	case balance > 1_000_000 && txCount < 5:
		return entity.HolderInsider
	case txCount > 50 && balance < 100_000:
		return entity.HolderSniper
	case isContract:
		return entity.HolderBot
	case txCount > 100:
		return entity.HolderSmartWallet
	default:
		return entity.HolderRegular
	}
}

// DetectSniperWallet reports whether the holder first showed up within SniperWindow of launch (ms).
func DetectSniperWallet(h entity.HolderInfo, launchTimeMs int64) bool {
	return h.FirstSeen <= launchTimeMs+SniperWindow.Milliseconds()
}

// CalculateWalletScore rates activity: up to 30 for transactions, a per-type weight, up to 20 for share.
func CalculateWalletScore(h entity.HolderInfo) int {
	score := math.Min(float64(h.TransactionCount)/10, 30)
	score += holderTypeWeights[h.HolderType]
	score += math.Min(h.Percentage*100, 20)
	return int(math.Round(score))
}

// GroupHoldersByType buckets holders by type. Every type has an entry, possibly empty.
func GroupHoldersByType(holders []entity.HolderInfo) map[entity.HolderType][]entity.HolderInfo {
	grouped := make(map[entity.HolderType][]entity.HolderInfo, len(entity.HolderTypes))
	for _, t := range entity.HolderTypes {
		grouped[t] = []entity.HolderInfo{}
	}
	for _, h := range holders {
		grouped[h.HolderType] = append(grouped[h.HolderType], h)
	}
	return grouped
}

// DetectAnomalies lists suspicious patterns of one holder as of now.
func DetectAnomalies(h entity.HolderInfo, now time.Time) entity.AnomalyReport {
	reasons := []string{}

	if h.Percentage > 10 {
		reasons = append(reasons, "Large holder (>10%)")
	}
	if (h.HolderType == entity.HolderDev || h.HolderType == entity.HolderInsider) &&
		h.LastActive > now.Add(-time.Hour).UnixMilli() {
		reasons = append(reasons, "Dev/Insider recent activity")
	}
	if h.HolderType == entity.HolderSniper && h.TransactionCount > 500 {
		reasons = append(reasons, "Excessive sniper activity")
	}
	if h.HolderType == entity.HolderBot {
		reasons = append(reasons, "Contract address holder")
	}

	return entity.AnomalyReport{
		Address:      h.Address,
		IsSuspicious: len(reasons) > 0,
		Reasons:      reasons,
	}
}
