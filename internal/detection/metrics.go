package detection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DetectorRunsTotal counts detector invocations.
	DetectorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_detector_runs_total",
			Help: "Total number of detector runs",
		},
		[]string{"detector"},
	)

	// AnomaliesDetectedTotal counts detector runs that flagged an anomaly.
	AnomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_anomalies_detected_total",
			Help: "Total number of anomalies flagged by detector",
		},
		[]string{"detector"},
	)

	// DetectorDurationSeconds tracks per-detector latency.
	DetectorDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polymarket_insider_detector_duration_seconds",
			Help:    "Duration of a single detector run",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
		[]string{"detector"},
	)

	// DetectorPanicsTotal counts detectors that panicked and were recovered.
	DetectorPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_detector_panics_total",
			Help: "Total number of recovered detector panics",
		},
		[]string{"detector"},
	)
)
