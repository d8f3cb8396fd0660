package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentplane_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentplane_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Workflow execution metrics
	executeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentplane_execute_requests_total",
			Help: "Total number of agent execute requests",
		},
		[]string{"agent_id"},
	)

	executeSuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentplane_execute_success_total",
			Help: "Total number of successful agent executions",
		},
	)

	executeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentplane_execute_errors_total",
			Help: "Total number of failed agent executions",
		},
		[]string{"reason"}, // validation, not_found, internal
	)

	executeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentplane_execute_duration_seconds",
			Help:    "Agent workflow execution duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	// Database metrics
	dbHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentplane_db_healthy",
			Help: "Whether the last database health probe succeeded (1) or failed (0)",
		},
	)

	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentplane_db_connections_active",
			Help: "Number of open database connections",
		},
	)

	dbConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentplane_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Conversation cache metrics
	cacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentplane_cache_operations_total",
			Help: "Total number of conversation cache operations",
		},
		[]string{"operation", "result"}, // get/set/invalidate x hit/miss/ok/error
	)

	// Error metrics
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentplane_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"}, // auth, database, cache, validation
	)
)

// PrometheusMiddleware creates a Fiber middleware for Prometheus metrics
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		method := c.Method()
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// RecordExecuteRequest counts an incoming execute request for an agent
func RecordExecuteRequest(agentID string) {
	executeRequestsTotal.WithLabelValues(agentID).Inc()
}

// RecordExecuteSuccess records a completed workflow execution
func RecordExecuteSuccess(duration time.Duration) {
	executeSuccessTotal.Inc()
	executeDuration.Observe(duration.Seconds())
}

// RecordExecuteError counts a failed workflow execution by failure reason
func RecordExecuteError(reason string) {
	executeErrorsTotal.WithLabelValues(reason).Inc()
}

// SetDatabaseHealthy records the outcome of the latest store probe
func SetDatabaseHealthy(healthy bool) {
	if healthy {
		dbHealthy.Set(1)
	} else {
		dbHealthy.Set(0)
	}
}

// UpdateDatabaseConnections updates database connection pool gauges
func UpdateDatabaseConnections(active, idle int) {
	dbConnectionsActive.Set(float64(active))
	dbConnectionsIdle.Set(float64(idle))
}

// IncrementCacheOperation counts a conversation cache operation
func IncrementCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// IncrementError increments error counter
func IncrementError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
