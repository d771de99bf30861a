package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateDecisionsTotal counts gate outcomes: admitted or the rejection reason.
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_gate_decisions_total",
			Help: "Total number of alert gate decisions by result",
		},
		[]string{"result"},
	)

	// NotificationsSentTotal counts delivered notifications per channel.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_notifications_sent_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"channel"},
	)

	// NotificationFailuresTotal counts failed deliveries per channel.
	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_notification_failures_total",
			Help: "Total number of failed notification deliveries",
		},
		[]string{"channel"},
	)

	// NotificationsDroppedTotal counts notifications dropped on a full queue.
	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polymarket_insider_notifications_dropped_total",
			Help: "Total number of notifications dropped because the dispatch queue was full",
		},
	)

	// DispatchQueueDepth tracks notifications waiting for delivery.
	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polymarket_insider_dispatch_queue_depth",
			Help: "Number of notifications waiting in the dispatch queue",
		},
	)
)
