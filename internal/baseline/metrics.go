package baseline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BaselineComputeSeconds tracks baseline computation latency.
	BaselineComputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_insider_baseline_compute_seconds",
		Help:    "Duration of baseline computation per market",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	// BaselineCacheHitsTotal counts baselines reused from the cache.
	BaselineCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_baseline_cache_hits_total",
		Help: "Total number of baselines served from cache",
	})

	// EmptyBaselinesTotal counts computations that produced an empty baseline.
	EmptyBaselinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_baseline_empty_total",
		Help: "Total number of baseline computations with insufficient samples",
	})
)
