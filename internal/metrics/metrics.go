// Package metrics exposes Prometheus instrumentation for query handling,
// upstream data fetches, and LLM usage.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded label values. Label sets stay closed so series cardinality
// cannot grow with user input.
const (
	// Query statuses
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	// Fetch sources
	SourceCoinGecko    = "coingecko"
	SourceAlphaVantage = "alphavantage"
	SourceCryptoPanic  = "cryptopanic"
	SourceNewsAPI      = "newsapi"

	// LLM fallback kinds
	FallbackTimeout   = "timeout"
	FallbackRuleBased = "rule_based"

	// Query kinds
	KindAnalysis = "analysis"
	KindSummary  = "summary"
)

var (
	// QueriesTotal counts processed queries by kind and final status.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketmind_queries_total",
		Help: "Total number of market queries processed",
	}, []string{"kind", "status"})

	// QueryDuration tracks end-to-end query handling latency.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketmind_query_duration_seconds",
		Help:    "Query handling duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})

	// FetchFailures counts upstream fetch failures by source.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketmind_fetch_failures_total",
		Help: "Total number of upstream data fetch failures",
	}, []string{"source"})

	// LLMFallbacks counts analyses that fell back from the model.
	LLMFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketmind_llm_fallbacks_total",
		Help: "Total number of LLM analyses replaced by a fallback",
	}, []string{"kind"})

	// LLMRequestDuration tracks LLM call latency.
	LLMRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketmind_llm_request_duration_seconds",
		Help:    "LLM request duration in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 25},
	})

	// NotificationsDispatched counts notification dispatches.
	NotificationsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketmind_notifications_dispatched_total",
		Help: "Total number of high-impact notifications dispatched",
	})

	// CacheHits and CacheMisses track the market data cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketmind_cache_hits_total",
		Help: "Total number of market data cache hits",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketmind_cache_misses_total",
		Help: "Total number of market data cache misses",
	})

	// WatchlistRuns counts scheduled watchlist evaluations.
	WatchlistRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketmind_watchlist_runs_total",
		Help: "Total number of scheduled watchlist evaluations",
	}, []string{"status"})
)

// RecordQuery records a completed query with its duration.
func RecordQuery(kind, status string, durationSeconds float64) {
	QueriesTotal.WithLabelValues(kind, status).Inc()
	QueryDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordFetchFailure records an upstream fetch failure.
func RecordFetchFailure(source string) {
	FetchFailures.WithLabelValues(source).Inc()
}

// RecordLLMFallback records an analysis that used a fallback.
func RecordLLMFallback(kind string) {
	LLMFallbacks.WithLabelValues(kind).Inc()
}
