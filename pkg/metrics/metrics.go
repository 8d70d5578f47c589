package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Lifecycle metrics
	ActiveRidesGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_rides_total",
			Help: "Current number of non-terminal rides seen by this instance",
		},
		[]string{"service"},
	)

	RidesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rides_total",
			Help: "Total number of rides that reached a status",
		},
		[]string{"service", "status"},
	)

	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_transitions_total",
			Help: "Lifecycle transition attempts by event and outcome kind",
		},
		[]string{"service", "event", "result"},
	)

	RideConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_conflicts_total",
			Help: "Transitions that lost an atomic race",
		},
		[]string{"service", "event"},
	)

	PositionUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "position_updates_total",
			Help: "Live position writes by outcome",
		},
		[]string{"service", "result"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service", "stream"},
	)

	BrokerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_published_total",
			Help: "Total number of lifecycle events published to the broker",
		},
		[]string{"service", "broker", "status"},
	)

	BrokerMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_consumed_total",
			Help: "Total number of lifecycle events consumed from the broker",
		},
		[]string{"service", "broker", "status"},
	)

	ExternalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_requests_total",
			Help: "Calls to geocoding and routing providers",
		},
		[]string{"service", "target", "status"},
	)

	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_request_duration_seconds",
			Help:    "Duration of calls to geocoding and routing providers",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8},
		},
		[]string{"service", "target"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordTransition records the outcome of a lifecycle transition attempt.
// result is "ok" or an error kind name.
func RecordTransition(service, event, result string) {
	RideTransitionsTotal.WithLabelValues(service, event, result).Inc()
	if result == "conflict_lost" {
		RideConflictsTotal.WithLabelValues(service, event).Inc()
	}
}

// RecordPublish records broker publish metrics
func RecordPublish(service, broker string, err error) {
	BrokerMessagesPublished.WithLabelValues(service, broker, status(err)).Inc()
}

// RecordConsume records broker consume metrics
func RecordConsume(service, broker string, err error) {
	BrokerMessagesConsumed.WithLabelValues(service, broker, status(err)).Inc()
}

// RecordExternal records a call to an external provider.
func RecordExternal(service, target string, err error, duration time.Duration) {
	ExternalRequestsTotal.WithLabelValues(service, target, status(err)).Inc()
	ExternalRequestDuration.WithLabelValues(service, target).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
