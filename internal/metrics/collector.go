package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the service's Prometheus instruments.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Chat pipeline metrics
	chatRequestsTotal   *prometheus.CounterVec
	chatRequestDuration *prometheus.HistogramVec

	// Knowledge cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Dispatcher and inference metrics
	replicaInFlight        *prometheus.GaugeVec
	inferenceRequestsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the service instruments on reg. Tests pass a fresh
// prometheus.NewRegistry so collectors never collide across cases.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	auto := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP metrics
	c.httpRequestsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Chat pipeline metrics
	c.chatRequestsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Total number of chat requests",
		},
		[]string{"tenant", "status"},
	)
	c.chatRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_request_duration_seconds",
			Help:      "End-to-end chat pipeline duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tenant"},
	)

	// Knowledge cache metrics
	c.cacheHits = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of knowledge cache hits",
		},
		[]string{"tenant"},
	)
	c.cacheMisses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of knowledge cache misses",
		},
		[]string{"tenant"},
	)

	// Dispatcher and inference metrics
	c.replicaInFlight = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "replica_in_flight",
			Help:      "Requests currently in flight per replica",
		},
		[]string{"replica"},
	)
	c.inferenceRequestsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_requests_total",
			Help:      "Total number of completion calls",
		},
		[]string{"replica", "status"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordChatRequest records one chat pipeline outcome. status is "ok" or
// the error code that terminated the request.
func (c *Collector) RecordChatRequest(tenant, status string, duration time.Duration) {
	c.chatRequestsTotal.WithLabelValues(tenant, status).Inc()
	c.chatRequestDuration.WithLabelValues(tenant).Observe(duration.Seconds())
}

// RecordCacheHit records a knowledge cache hit.
func (c *Collector) RecordCacheHit(tenant string) {
	c.cacheHits.WithLabelValues(tenant).Inc()
}

// RecordCacheMiss records a knowledge cache miss.
func (c *Collector) RecordCacheMiss(tenant string) {
	c.cacheMisses.WithLabelValues(tenant).Inc()
}

// ReplicaAcquired moves the replica's in-flight gauge up.
func (c *Collector) ReplicaAcquired(replica string) {
	c.replicaInFlight.WithLabelValues(replica).Inc()
}

// ReplicaReleased moves the replica's in-flight gauge down.
func (c *Collector) ReplicaReleased(replica string) {
	c.replicaInFlight.WithLabelValues(replica).Dec()
}

// RecordInference records one completion call outcome.
func (c *Collector) RecordInference(replica, status string) {
	c.inferenceRequestsTotal.WithLabelValues(replica, status).Inc()
}

// statusCode buckets an HTTP status for the counter label.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
