package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream call outcomes
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeRetry   = "retry"
	OutcomeError   = "error"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_upstream_requests_total",
			Help: "Total number of upstream API requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_lookups_total",
			Help: "Total number of cache lookups by store and result",
		},
		[]string{"store", "result"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_search_duration_seconds",
			Help:    "Wallet search duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"query_type", "status"},
	)

	transactionsFetched = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_transactions_fetched",
			Help:    "Number of transactions fetched per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
	)
)

// UpstreamRequest counts one upstream request
func UpstreamRequest(provider, outcome string) {
	upstreamRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// CacheLookup counts one cache lookup
func CacheLookup(store string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(store, result).Inc()
}

// ObserveSearch records a finished search
func ObserveSearch(queryType string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	searchDuration.WithLabelValues(queryType, status).Observe(elapsed.Seconds())
}

// ObserveTransactionsFetched records the size of a fetched history
func ObserveTransactionsFetched(n int) {
	transactionsFetched.Observe(float64(n))
}
