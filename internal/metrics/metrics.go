package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jukebox"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	sagaOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "add_requests_total",
			Help:      "Song request sagas by outcome.",
		},
		[]string{"lane", "outcome"},
	)

	compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "compensations_total",
			Help:      "Compensating credits issued after a failed queue write, by result.",
		},
		[]string{"result"},
	)

	incidents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "incidents_total",
			Help:      "Money-movement incidents that need an operator, by kind.",
		},
		[]string{"kind"},
	)

	ledgerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "call_duration_seconds",
			Help:      "Duration of points ledger calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 11),
		},
		[]string{"operation", "result"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "connections",
			Help:      "Currently registered websocket connections.",
		},
	)

	broadcastMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "messages_total",
			Help:      "Messages handed to local connections, by scope and result.",
		},
		[]string{"scope", "result"},
	)

	auditMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "messages_total",
			Help:      "Audit events written to kafka, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		sagaOutcomes,
		compensations,
		incidents,
		ledgerDuration,
		wsConnections,
		broadcastMessages,
		auditMessages,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordSaga(lane, outcome string) {
	sagaOutcomes.WithLabelValues(lane, outcome).Inc()
}

func RecordCompensation(result string) {
	compensations.WithLabelValues(result).Inc()
}

func RecordIncident(kind string) {
	incidents.WithLabelValues(kind).Inc()
}

func ObserveLedger(operation, result string, started time.Time) {
	ledgerDuration.WithLabelValues(operation, result).Observe(time.Since(started).Seconds())
}

func ConnectionOpened() { wsConnections.Inc() }

func ConnectionClosed() { wsConnections.Dec() }

func RecordBroadcast(scope, result string) {
	broadcastMessages.WithLabelValues(scope, result).Inc()
}

func RecordAudit(result string) {
	auditMessages.WithLabelValues(result).Inc()
}
