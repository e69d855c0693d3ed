// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Realtime connections
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wiredm_ws_connections_active",
			Help: "Number of bound realtime connections",
		},
	)

	WSHandshakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiredm_ws_handshakes_total",
			Help: "Realtime handshakes by outcome",
		},
		[]string{"outcome"}, // bound, Unauthorized, InvalidCredential, timeout
	)

	// Messages
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiredm_messages_sent_total",
			Help: "Messages persisted, by entry point",
		},
		[]string{"transport"}, // realtime, api
	)

	MessageSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiredm_message_send_failures_total",
			Help: "Send attempts that produced no message",
		},
		[]string{"transport", "reason"},
	)

	FanoutDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiredm_fanout_deliveries_total",
			Help: "Per-connection newMessage deliveries",
		},
		[]string{"outcome"}, // delivered, dropped
	)

	// HTTP API
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wiredm_http_request_duration_seconds",
			Help:    "Duration of Request API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Store
	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wiredm_store_breaker_state",
			Help: "Message store circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
)

// ObserveHTTPRequest records one API call.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
