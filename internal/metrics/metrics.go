// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safex_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safex_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safex_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Token Metrics
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safex_tokens_issued_total",
			Help: "Token pairs issued",
		},
		[]string{"reason"}, // login, register, refresh
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safex_token_refresh_total",
			Help: "Refresh attempts by outcome",
		},
		[]string{"outcome"}, // success, expired, invalid, revoked, compromised, error
	)

	TokenReuseDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safex_token_reuse_detected_total",
			Help: "Refresh token reuse events that revoked a user's chains",
		},
	)

	RefreshTokensSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safex_refresh_tokens_swept_total",
			Help: "Expired refresh-token records deleted by the sweeper",
		},
	)

	// Alert Metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safex_alerts_created_total",
			Help: "Alerts persisted",
		},
		[]string{"severity"},
	)

	AlertsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safex_alerts_resolved_total",
			Help: "Alerts resolved",
		},
		[]string{"status"},
	)

	AlertPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safex_alert_publish_failures_total",
			Help: "Notifications that could not be published after commit",
		},
	)

	FanoutDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safex_fanout_deliveries_total",
			Help: "Messages queued to monitoring sessions",
		},
	)

	FanoutDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safex_fanout_drops_total",
			Help: "Sessions dropped during broadcast because their buffer was full",
		},
	)

	DispatcherResubscribes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safex_dispatcher_resubscribes_total",
			Help: "Times the dispatcher re-bound its subscription",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safex_websocket_connections",
			Help: "Current number of registered monitoring sessions",
		},
	)

	WSClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safex_websocket_closed_total",
			Help: "Monitoring sessions closed by reason",
		},
		[]string{"reason"},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safex_websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "safex_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSessionClosed decrements the live gauge and counts the reason.
func RecordSessionClosed(reason string) {
	WSConnections.Dec()
	WSClosed.WithLabelValues(reason).Inc()
}
