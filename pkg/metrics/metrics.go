package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio_tracker"

var (
	// ProviderRequests counts calls to external REST providers by provider and outcome.
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Total number of requests to external data providers",
	}, []string{"provider", "status"})

	ProviderLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "External provider request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	// RPCFallbacks counts how often a chain client gave up on an endpoint and moved to the next one.
	RPCFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "endpoint_fallbacks_total",
		Help:      "Total number of RPC endpoint fallbacks",
	}, []string{"chain"})

	RPCCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total number of JSON-RPC calls (batch counts as one)",
	}, []string{"chain", "status"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by namespace and result (hit, miss, stale)",
	}, []string{"namespace", "result"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of API requests",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "API request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry. Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ProviderRequests,
			ProviderLatency,
			RPCFallbacks,
			RPCCalls,
			CacheLookups,
			HTTPRequests,
			HTTPDuration,
		)
	})
}

// StatusLabel maps an error to the status label used by the counters.
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
