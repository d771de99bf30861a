package markets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrackedMarkets is the number of markets in the registry.
	TrackedMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_insider_tracked_markets",
		Help: "Number of markets currently tracked",
	})

	// TradesRecordedTotal counts trades added to market buffers, by source.
	TradesRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_insider_trades_recorded_total",
		Help: "Total number of trades added to market buffers",
	}, []string{"source"})

	// TradesIgnoredTotal counts trades not recorded, by reason.
	TradesIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_insider_trades_ignored_total",
		Help: "Total number of trades not recorded",
	}, []string{"reason"})

	// TradesEvictedTotal counts trades dropped by the buffer cap.
	TradesEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_trades_evicted_total",
		Help: "Total number of trades evicted from full market buffers",
	})
)
