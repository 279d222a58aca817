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
	// Deploy outcome counter
	DeployCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_deploys_total",
			Help: "Total number of provisioning attempts by outcome",
		},
		[]string{"outcome"}, // "succeeded", "validation_failed", "upload_rejected", "upload_failed", "duplicate_key", "persistence_failed"
	)

	// Document upload counter
	DocumentUploadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_document_uploads_total",
			Help: "Total number of document uploads to the ingestion vendor by result",
		},
		[]string{"result"}, // "succeeded", "failed"
	)

	// Activation degradation counter
	ActivationDegradedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_activation_degraded_total",
			Help: "Total number of activation requests that degraded to an empty payload",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// DB operation duration histogram
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(DeployCounter)
	prometheus.MustRegister(DocumentUploadCounter)
	prometheus.MustRegister(ActivationDegradedCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(DBOperationDuration)
}

// RecordDeployOutcome increments the deploy counter for the given outcome
func RecordDeployOutcome(outcome string) {
	DeployCounter.WithLabelValues(outcome).Inc()
}

// RecordDocumentUpload increments the upload counter for the given result
func RecordDocumentUpload(result string) {
	DocumentUploadCounter.WithLabelValues(result).Inc()
}

// RecordActivationDegraded counts one degraded activation request
func RecordActivationDegraded() {
	ActivationDegradedCounter.Inc()
}

// TrackDBOperation returns a function that records the operation duration
// when called, for use with defer:
//
//	defer prometheus.TrackDBOperation("insert")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Middleware creates an Echo middleware function that records HTTP request
// metrics
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			method := c.Request().Method
			path := c.Path()
			statusStr := strconv.Itoa(status)

			HTTPRequestCounter.WithLabelValues(method, path, statusStr).Inc()
			HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// GetPrometheusHandler returns an HTTP handler for exposing Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}
