package backfill

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchDurationSeconds tracks full history fetch latency.
	FetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_insider_backfill_fetch_duration_seconds",
		Help:    "Duration of historical trade fetches from the Data API",
		Buckets: prometheus.DefBuckets,
	})

	// FetchErrorsTotal tracks Data API failures after retries.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_backfill_fetch_errors_total",
		Help: "Total number of Data API fetch failures",
	})

	// InvalidTradesTotal counts Data API rows that failed normalization.
	InvalidTradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_backfill_invalid_trades_total",
		Help: "Total number of historical trades rejected during normalization",
	})

	// CacheHitsTotal tracks history cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_backfill_cache_hits_total",
		Help: "Total number of backfill cache hits",
	})

	// CacheMissesTotal tracks history cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_backfill_cache_misses_total",
		Help: "Total number of backfill cache misses",
	})
)
