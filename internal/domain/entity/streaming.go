package entity

// StreamData is one continuous payment stream. FlowRate is the smallest token unit per second
// as a decimal string; StartTime and EndTime are in milliseconds.
type StreamData struct {
	TokenAddress string `json:"tokenAddress"`
	TokenSymbol  string `json:"tokenSymbol"`
	FlowRate     string `json:"flowRate"`
	StartTime    int64  `json:"startTime"`
	EndTime      *int64 `json:"endTime,omitempty"`
	Receiver     string `json:"receiver"`
	Sender       string `json:"sender"`
	IsActive     bool   `json:"isActive"`
}

// StreamingStats aggregates the active streams of a wallet.
type StreamingStats struct {
	TotalActiveStreams     int         `json:"totalActiveStreams"`
	TotalFlowRatePerSecond float64     `json:"totalFlowRatePerSecond"`
	TotalDailyIncome       float64     `json:"totalDailyIncome"`
	TotalMonthlyProjection float64     `json:"totalMonthlyProjection"`
	TopStream              *StreamData `json:"topStream"`
	AverageFlowRate        float64     `json:"averageFlowRate"`
	LongestActiveStream    *StreamData `json:"longestActiveStream"`
}

// StreamMetrics expresses a per-second flow rate over larger units.
type StreamMetrics struct {
	TokenSymbol       string   `json:"tokenSymbol"`
	FlowRatePerSecond float64  `json:"flowRatePerSecond"`
	FlowRatePerMinute float64  `json:"flowRatePerMinute"`
	FlowRatePerHour   float64  `json:"flowRatePerHour"`
	FlowRatePerDay    float64  `json:"flowRatePerDay"`
	TotalFlowed       float64  `json:"totalFlowed"`
	RemainingTime     *float64 `json:"remainingTime,omitempty"`
	StreakDays        int      `json:"streakDays"`
}
