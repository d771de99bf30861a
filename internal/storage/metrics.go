package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsSavedTotal counts alerts persisted, by severity.
	AlertsSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_alerts_saved_total",
			Help: "Total number of alerts persisted",
		},
		[]string{"severity"},
	)

	// AlertsClearedTotal counts alerts removed by retention cleanup.
	AlertsClearedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polymarket_insider_alerts_cleared_total",
			Help: "Total number of alerts removed by retention cleanup",
		},
	)

	// StorageErrorsTotal counts failed storage operations.
	StorageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_storage_errors_total",
			Help: "Total number of failed storage operations",
		},
		[]string{"operation"},
	)
)
