package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskify_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	authOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskify_auth_outcomes_total",
			Help: "Bearer token authentications by outcome",
		},
		[]string{"outcome"},
	)
	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskify_jobs_processed_total",
			Help: "Background jobs processed by type and result",
		},
		[]string{"type", "result"},
	)
)

// PrometheusMiddleware records request duration by matched route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, routeOf(c), status).
			Observe(time.Since(start).Seconds())
	}
}

// RecordAuthOutcome counts one authentication. outcome is "ok" or an auth
// error kind such as "token_expired".
func RecordAuthOutcome(outcome string) {
	authOutcomes.WithLabelValues(outcome).Inc()
}

// RecordJob counts one processed background job. result is "ok", "retry"
// or "dead".
func RecordJob(jobType, result string) {
	jobsProcessed.WithLabelValues(jobType, result).Inc()
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
