package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CycleDurationSeconds tracks full analysis cycle latency.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_insider_analysis_cycle_duration_seconds",
		Help:    "Duration of one analysis cycle over all tracked markets",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})

	CycleTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_analysis_cycle_timeouts_total",
		Help: "Total number of analysis cycles cut short by the cycle timeout",
	})

	// MarketAnalysisSeconds tracks per-market analysis latency up to the gate.
	MarketAnalysisSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_insider_market_analysis_seconds",
		Help:    "Duration of baseline, detection and aggregation for one market",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	MarketsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_markets_skipped_total",
		Help: "Total number of market analyses skipped because the previous one was still running",
	})

	// AlertsGeneratedTotal tracks alerts that passed the gate.
	AlertsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_insider_alerts_generated_total",
		Help: "Total number of alerts admitted by the gate",
	}, []string{"alert_type", "severity"})

	BackfillFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_backfill_failures_total",
		Help: "Total number of markets whose history could not be fetched",
	})
)
