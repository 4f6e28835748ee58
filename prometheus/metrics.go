package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskdeck_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskdeck_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Workspace operation counter
	WorkspaceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_workspace_operations_total",
			Help: "Total number of workspace operations",
		},
		[]string{"operation"}, // "resolve", "rename", "switch", "member_role", "member_remove", ...
	)

	// Invite lifecycle counter
	InviteOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_invite_operations_total",
			Help: "Total number of invite operations by outcome",
		},
		[]string{"operation", "outcome"}, // operation: "create"|"redeem"|"revoke"
	)

	// Task operation counter
	TaskOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_task_operations_total",
			Help: "Total number of task operations",
		},
		[]string{"operation"},
	)

	// Permission denial counter
	ForbiddenCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_forbidden_total",
			Help: "Total number of permission denials by attempted action",
		},
		[]string{"action"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskdeck_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskdeck_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete", "tx"
	)
)

// Gauge metrics
var (
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskdeck_active_tokens",
			Help: "Number of currently active authentication tokens",
		},
	)

	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskdeck_info",
			Help: "Information about the taskdeck service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(WorkspaceOperationCounter)
	prometheus.MustRegister(InviteOperationCounter)
	prometheus.MustRegister(TaskOperationCounter)
	prometheus.MustRegister(ForbiddenCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(ActiveTokensGauge)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(startTime).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordWorkspaceOperation records a workspace-level operation
func RecordWorkspaceOperation(operation string) {
	WorkspaceOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordInviteOperation records an invite operation with its outcome
func RecordInviteOperation(operation, outcome string) {
	InviteOperationCounter.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}

// RecordTaskOperation records a task mutation
func RecordTaskOperation(operation string) {
	TaskOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordForbidden records a permission denial by attempted action
func RecordForbidden(action string) {
	ForbiddenCounter.With(prometheus.Labels{"action": action}).Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// IncreaseActiveTokens increments the active tokens gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}

// DecreaseActiveTokens decrements the active tokens gauge
func DecreaseActiveTokens() {
	ActiveTokensGauge.Dec()
}
