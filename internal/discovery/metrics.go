package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsFetchedTotal tracks markets returned by the Gamma API.
	MarketsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_discovery_markets_fetched_total",
		Help: "Total number of markets returned by the Gamma API",
	})

	MarketsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_discovery_markets_added_total",
		Help: "Total number of markets added to the monitored set",
	})

	MarketsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_discovery_markets_removed_total",
		Help: "Total number of markets dropped from the monitored set",
	})

	// PollDurationSeconds tracks API poll latency.
	PollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_insider_discovery_poll_duration_seconds",
		Help:    "Duration of Gamma API polls",
		Buckets: prometheus.DefBuckets,
	})

	PollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_discovery_poll_errors_total",
		Help: "Total number of Gamma API poll failures",
	})
)
