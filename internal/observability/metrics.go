package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messageapp_http_requests_total",
			Help: "Total number of HTTP requests processed by the message service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messageapp_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	storeCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messageapp_store_commits_total",
			Help: "Snapshot update attempts by outcome.",
		},
		[]string{"outcome"},
	)
	storeCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "messageapp_store_commit_duration_seconds",
			Help:    "Time spent holding the snapshot write lock.",
			Buckets: prometheus.DefBuckets,
		},
	)
	tokensSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messageapp_tokens_swept_total",
			Help: "Expired access tokens removed by the background sweeper.",
		},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "messageapp_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messageapp_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messageapp_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		storeCommitsTotal,
		storeCommitDuration,
		tokensSweptTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveStoreCommit records one snapshot update attempt.
func ObserveStoreCommit(outcome string, took time.Duration) {
	storeCommitsTotal.WithLabelValues(outcome).Inc()
	storeCommitDuration.Observe(took.Seconds())
}

func AddTokensSwept(n int) {
	tokensSweptTotal.Add(float64(n))
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
