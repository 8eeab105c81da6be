// Package metrics defines the Prometheus metrics for the game engine and its
// transports. Metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hvz"

// OperationsTotal counts game repository operations.
// Labels:
//   - operation: repository method name (e.g. "log_tag", "add_player")
//   - result: "ok" or the error kind (e.g. "conflict", "invalid_state")
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of game repository operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// OperationDuration measures repository operations end to end, including storage.
var OperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of game repository operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// TagsTotal counts successfully logged tags.
// Label:
//   - tagger_role: "zombie" or "oz"
var TagsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tags_total",
		Help:      "Total number of tags logged, by the tagger's role.",
	},
	[]string{"tagger_role"},
)

// OzDemotionsTotal counts OZs reverted to human after reaching the tag limit.
var OzDemotionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oz_demotions_total",
		Help:      "Total number of OZs automatically reverted to human.",
	},
)

// NotificationsPublishedTotal counts notifications handed to the event bus.
var NotificationsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_published_total",
		Help:      "Total number of notifications published, by type.",
	},
	[]string{"type"},
)

// NotificationsDroppedTotal counts deliveries skipped because a subscriber buffer was full.
var NotificationsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Total number of notifications dropped for slow subscribers, by type.",
	},
	[]string{"type"},
)

// Subscribers tracks the number of open event bus subscriptions.
var Subscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers",
		Help:      "Current number of event bus subscriptions.",
	},
)

// StreamClients tracks connected real-time clients.
// Label:
//   - transport: "sse" or "ws"
var StreamClients = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Current number of connected streaming clients, by transport.",
	},
	[]string{"transport"},
)

// HTTPRequestsTotal counts served HTTP requests.
// Labels:
//   - method: HTTP method
//   - route: matched route template (e.g. "/api/v1/games/{id}/tags"), or "unmatched"
//   - status: response status class ("2xx", "4xx", "5xx")
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status class.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures HTTP handling time. Streaming routes are
// excluded since their duration is the lifetime of the connection.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of non-streaming HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// PanicsTotal counts panics recovered by the HTTP middleware.
var PanicsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_panics_total",
		Help:      "Total number of panics recovered while serving HTTP requests.",
	},
)
