package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	voteAccepted  = "accepted"
	voteDuplicate = "duplicate"
	voteRefused   = "integrity"
	voteInvalid   = "invalid"
	voteError     = "error"
	voteTooLarge  = "too_large"
)

var (
	sengRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seng_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	sengRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seng_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	sengLedgerBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seng_ledger_blocks",
		Help: "Number of blocks in the ledger, genesis included.",
	})

	sengVotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seng_votes_total",
		Help: "Vote submissions by outcome.",
	}, []string{"result"})

	sengImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seng_imports_total",
		Help: "Chain imports by outcome.",
	}, []string{"result"})

	sengVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seng_verifications_total",
		Help: "Full-chain verifications by result.",
	}, []string{"result"})

	sengWebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seng_webhook_deliveries_total",
		Help: "Webhook delivery attempts by outcome.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		sengRequestsTotal.WithLabelValues(method, path, status).Inc()
		sengRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordVerification records the outcome of a full-chain verification.
// The daemon calls it for the startup check as well.
func RecordVerification(valid bool) { recordVerify(valid) }

// RecordWebhookDelivery records one webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	if success {
		sengWebhookDeliveries.WithLabelValues("success").Inc()
	} else {
		sengWebhookDeliveries.WithLabelValues("failure").Inc()
	}
}

// SetLedgerBlocks sets the ledger size gauge.
func SetLedgerBlocks(n int) { setBlocksGauge(n) }

func recordVerify(valid bool) {
	if valid {
		sengVerificationsTotal.WithLabelValues("valid").Inc()
	} else {
		sengVerificationsTotal.WithLabelValues("invalid").Inc()
	}
}

func recordVote(result string)   { sengVotesTotal.WithLabelValues(result).Inc() }
func recordImport(result string) { sengImportsTotal.WithLabelValues(result).Inc() }
func setBlocksGauge(n int)       { sengLedgerBlocks.Set(float64(n)) }
