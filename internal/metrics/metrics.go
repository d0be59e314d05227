// Package metrics holds the Prometheus instruments of the interaction backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Interaction pipeline
	InteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_interactions_total",
			Help: "Interactions evaluated by the moderation policy",
		},
		[]string{"kind", "decision"}, // decision: accept, pending, reject
	)

	ContentRedactedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_content_redacted_total",
			Help: "Interactions whose content matched the deny list",
		},
		[]string{"kind"},
	)

	// Fan-out
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_broadcasts_total",
			Help: "Events emitted by the broadcast router",
		},
		[]string{"event", "target"},
	)

	DroppedSendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_dropped_sends_total",
			Help: "Messages dropped because a client send buffer was full",
		},
	)

	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connected_clients",
			Help: "Currently connected websocket clients",
		},
	)

	// Presence
	ActiveViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_active_viewers",
			Help: "Viewers currently declared present",
		},
	)

	SessionCloseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_session_close_failures_total",
			Help: "Viewer sessions that could not be closed in storage",
		},
	)

	SnapshotFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_viewer_snapshot_failures_total",
			Help: "Viewer count snapshots that failed to persist",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "live_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordInteraction counts one moderation decision.
func RecordInteraction(kind, decision string) {
	InteractionsTotal.WithLabelValues(kind, decision).Inc()
}

// RecordHTTPRequest observes one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
