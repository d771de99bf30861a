package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks active WebSocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_insider_stream_active_connections",
		Help: "Number of active WebSocket connections",
	})

	// ConnectionState exposes the current state machine value.
	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_insider_stream_connection_state",
		Help: "Current stream state (0=disconnected 1=connecting 2=connected 3=error 4=closed 5=reconnecting 6=given_up)",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_stream_reconnect_attempts_total",
		Help: "Total number of WebSocket reconnection attempts",
	})

	// ReconnectFailuresTotal tracks reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_stream_reconnect_failures_total",
		Help: "Total number of WebSocket reconnection failures",
	})

	// GivenUpTotal counts transitions into the terminal given-up state.
	GivenUpTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_stream_given_up_total",
		Help: "Total number of times the stream gave up reconnecting",
	})

	// MessagesReceivedTotal tracks classified messages by kind.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_stream_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
		[]string{"kind"},
	)

	// InvalidTradesTotal tracks trades rejected during normalization.
	InvalidTradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_stream_invalid_trades_total",
		Help: "Total number of trade events rejected during normalization",
	})

	// MessageLatencySeconds tracks message processing latency.
	MessageLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_insider_stream_message_latency_seconds",
		Help:    "WebSocket message processing latency",
		Buckets: prometheus.DefBuckets,
	})

	// SubscriptionCount tracks subscribed asset ids.
	SubscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_insider_stream_subscription_count",
		Help: "Number of subscribed asset ids",
	})

	// MessagesDroppedTotal tracks trades dropped before reaching the sink.
	MessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_insider_stream_messages_dropped_total",
			Help: "Total number of trades dropped before reaching the sink",
		},
		[]string{"reason"},
	)

	// ConnectionDuration tracks WebSocket connection lifetime.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_insider_stream_connection_duration_seconds",
		Help:    "Duration of WebSocket connections before disconnect",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
	})

	// UnsubscriptionsTotal tracks market removals that forced a resubscribe.
	UnsubscriptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_insider_stream_unsubscriptions_total",
		Help: "Total number of market removals",
	})
)
