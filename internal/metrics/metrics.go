package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the catalog database, read API, event
// broker, scheduler, vector worker and assistant gateway.

var (
	// Database metrics.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_db_query_duration_seconds",
			Help:    "Duration of catalog/shard SQLite queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_db_query_errors_total",
			Help: "Total number of catalog/shard query errors",
		},
		[]string{"operation", "error_kind"},
	)

	DBOpenShards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_shard_pool_open",
			Help: "Current number of open read-only shard connections",
		},
	)

	// Read API / HTTP metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_api_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Event broker metrics.
	BrokerEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_broker_events_published_total",
			Help: "Total number of events published from events_queue",
		},
	)

	BrokerSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_broker_subscribers",
			Help: "Current number of connected event subscribers",
		},
	)

	BrokerEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_broker_events_dropped_total",
			Help: "Total number of events dropped from a subscriber's bounded queue",
		},
		[]string{"reason"},
	)

	// Realtime connection/QoS monitor metrics (distinct from the broker's
	// publish-side counters above: these track delivery to a specific
	// SSE/WS client, not the internal fan-out).
	RealtimeEventsPushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_realtime_events_pushed_total",
			Help: "Total number of events delivered to a live SSE/WS client",
		},
	)

	RealtimeEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_realtime_events_dropped_total",
			Help: "Total number of events dropped for a live SSE/WS client",
		},
	)

	RealtimeAIRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_realtime_ai_requests_total",
			Help: "Total number of assistant requests observed by the realtime monitor",
		},
	)

	RealtimeAIErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_realtime_ai_errors_total",
			Help: "Total number of assistant request errors observed by the realtime monitor",
		},
	)

	RealtimeWSConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_realtime_ws_connected",
			Help: "Current number of connected WebSocket clients",
		},
	)

	RealtimeSSEConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_realtime_sse_connected",
			Help: "Current number of connected SSE clients",
		},
	)

	// Scheduler metrics.
	JobsLeased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_jobs_leased_total",
			Help: "Total number of jobs leased by a worker",
		},
		[]string{"kind", "resource_class"},
	)

	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_jobs_finished_total",
			Help: "Total number of jobs completed",
		},
		[]string{"kind", "status"},
	)

	JobsReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_jobs_reclaimed_total",
			Help: "Total number of jobs reclaimed by the reaper after lease expiry",
		},
		[]string{"resource_class"},
	)

	JobQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_job_queue_depth",
			Help: "Current number of queued jobs by resource class",
		},
		[]string{"resource_class"},
	)

	// Vector worker metrics.
	VectorsRefreshed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_vectors_refreshed_total",
			Help: "Total number of feature vectors refreshed",
		},
	)

	VectorsPendingDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_vectors_pending_depth",
			Help: "Current number of rows in vectors_pending",
		},
	)

	// Assistant gateway metrics.
	AssistantSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_assistant_sessions_active",
			Help: "Current number of active assistant sessions",
		},
	)

	AssistantToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_assistant_tool_calls_total",
			Help: "Total number of assistant tool calls",
		},
		[]string{"tool", "outcome"},
	)

	// Circuit breaker metrics for the external enrichment client.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker",
		},
		[]string{"name", "result"},
	)
)

// RecordDBQuery records a database query observation.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, "internal").Inc()
	}
}

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
