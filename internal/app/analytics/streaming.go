package analytics

import (
	"fmt"
	"math"
	"strings"

	"portfolio_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// StreamTokenDecimals is the precision of streamed super tokens.
const StreamTokenDecimals = 18

const (
	secondsPerDay = 86400
	daysPerMonth  = 30
)

// parseRate reads an integer flow-rate string; garbage counts as zero.
func parseRate(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func perSecond(raw string, decimals int32) decimal.Decimal {
	return parseRate(raw).Shift(-decimals)
}

// CalculateStreamingStats aggregates the active streams. Inactive ones are ignored.
func CalculateStreamingStats(streams []entity.StreamData) entity.StreamingStats {
	var (
		stats  entity.StreamingStats
		total  = decimal.Zero
		top    *entity.StreamData
		oldest *entity.StreamData
	)

	for i := range streams {
		s := &streams[i]
		if !s.IsActive {
			continue
		}
		stats.TotalActiveStreams++
		total = total.Add(perSecond(s.FlowRate, StreamTokenDecimals))

		if top == nil || parseRate(s.FlowRate).GreaterThan(parseRate(top.FlowRate)) {
			top = s
		}
		if oldest == nil || s.StartTime < oldest.StartTime {
			oldest = s
		}
	}

	daily := total.Mul(decimal.NewFromInt(secondsPerDay))
	stats.TotalFlowRatePerSecond = total.InexactFloat64()
	stats.TotalDailyIncome = daily.InexactFloat64()
	stats.TotalMonthlyProjection = daily.Mul(decimal.NewFromInt(daysPerMonth)).InexactFloat64()
	if stats.TotalActiveStreams > 0 {
		stats.AverageFlowRate = total.Div(decimal.NewFromInt(int64(stats.TotalActiveStreams))).InexactFloat64()
	}
	if top != nil {
		cp := *top
		stats.TopStream = &cp
	}
	if oldest != nil {
		cp := *oldest
		stats.LongestActiveStream = &cp
	}
	return stats
}

// CalculateFlowRateMetrics expresses a raw per-second rate per second, minute, hour and day.
func CalculateFlowRateMetrics(flowRate string, decimals int32) entity.StreamMetrics {
	ps := perSecond(flowRate, decimals)
	return entity.StreamMetrics{
		TokenSymbol:       DefaultPositionSymbol,
		FlowRatePerSecond: ps.InexactFloat64(),
		FlowRatePerMinute: ps.Mul(decimal.NewFromInt(60)).InexactFloat64(),
		FlowRatePerHour:   ps.Mul(decimal.NewFromInt(3600)).InexactFloat64(),
		FlowRatePerDay:    ps.Mul(decimal.NewFromInt(secondsPerDay)).InexactFloat64(),
	}
}

// CalculateTotalFlowed is the amount streamed between two millisecond timestamps.
func CalculateTotalFlowed(flowRate string, startMs, endMs int64, decimals int32) float64 {
	seconds := decimal.NewFromInt(endMs - startMs).Div(decimal.NewFromInt(1000))
	return perSecond(flowRate, decimals).Mul(seconds).InexactFloat64()
}

// FormatFlowRate renders a rate with six decimals per minute, hour or day. An empty unit
// means day; an unknown unit stays per second.
func FormatFlowRate(flowRate string, decimals int32, unit string) string {
	ps := perSecond(flowRate, decimals)
	var (
		rate   decimal.Decimal
		suffix string
	)
	switch unit {
	case "", "day":
		rate, suffix = ps.Mul(decimal.NewFromInt(secondsPerDay)), "/day"
	case "minute":
		rate, suffix = ps.Mul(decimal.NewFromInt(60)), "/min"
	case "hour":
		rate, suffix = ps.Mul(decimal.NewFromInt(3600)), "/hr"
	default:
		rate, suffix = ps, "/sec"
	}
	return rate.StringFixed(6) + suffix
}

// EstimateStreamDuration returns the seconds until balance is drained at flowRate, +Inf for a zero rate.
func EstimateStreamDuration(balance, flowRate string) float64 {
	rate := parseRate(flowRate)
	if rate.IsZero() {
		return math.Inf(1)
	}
	return parseRate(balance).Div(rate).InexactFloat64()
}

// FormatDuration renders seconds as the two largest units, "∞" when not finite.
func FormatDuration(seconds float64) string {
	if math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return "∞"
	}

	total := int64(math.Floor(seconds))
	days := total / secondsPerDay
	hours := (total % secondsPerDay) / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
