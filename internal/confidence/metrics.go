package confidence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CandidatesTotal counts candidate alerts by type and severity.
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_alert_candidates_total",
			Help: "Total number of candidate alerts produced by aggregation",
		},
		[]string{"alert_type", "severity"},
	)

	// ConfidenceScore tracks the raw confidence of candidate alerts.
	ConfidenceScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_insider_alert_confidence_score",
		Help:    "Raw confidence score of candidate alerts",
		Buckets: []float64{4, 6, 8, 10, 12, 15, 18, 21, 25},
	})
)
