package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every custom metric of the service.
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Gateway Metrics
	DBQueryDuration   *prometheus.HistogramVec
	DBQueryErrors     *prometheus.CounterVec
	TableMutations    *prometheus.CounterVec
	RateLimitRejected *prometheus.CounterVec

	// Cache (Redis) Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Queue (RabbitMQ) Metrics
	QueueMessagesPublished *prometheus.CounterVec
	QueueMessagesConsumed  *prometheus.CounterVec
	AuditEventsFailed      *prometheus.CounterVec
}

// NewMetrics registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"query_type"}, // SELECT, INSERT, UPDATE, DELETE, CREATE, DROP
		),

		DBQueryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_query_errors_total",
				Help: "Total number of failed database queries",
			},
			[]string{"query_type"},
		),

		TableMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "table_mutations_total",
				Help: "Total number of successful table and row mutations",
			},
			[]string{"action"},
		),

		RateLimitRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_rejected_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_type"},
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_type"},
		),

		QueueMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_published_total",
				Help: "Total number of messages published to the queue",
			},
			[]string{"queue_name"},
		),

		QueueMessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_consumed_total",
				Help: "Total number of messages consumed from the queue",
			},
			[]string{"queue_name"},
		),

		AuditEventsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_events_failed_total",
				Help: "Total number of audit events that could not be stored",
			},
			[]string{"reason"},
		),
	}
}

// GlobalMetrics is registered on the default registry by InitMetrics.
var GlobalMetrics *Metrics

func InitMetrics() {
	GlobalMetrics = NewMetrics(prometheus.DefaultRegisterer)
}

// ObserveQuery records a statement's duration and failure. Safe on a nil receiver.
func (m *Metrics) ObserveQuery(queryType string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(queryType).Observe(time.Since(start).Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(queryType).Inc()
	}
}

func (m *Metrics) CacheHit(keyType string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(keyType).Inc()
}

func (m *Metrics) CacheMiss(keyType string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(keyType).Inc()
}

func (m *Metrics) Mutation(action string) {
	if m == nil {
		return
	}
	m.TableMutations.WithLabelValues(action).Inc()
}

func (m *Metrics) Published(queue string) {
	if m == nil {
		return
	}
	m.QueueMessagesPublished.WithLabelValues(queue).Inc()
}

func (m *Metrics) Consumed(queue string) {
	if m == nil {
		return
	}
	m.QueueMessagesConsumed.WithLabelValues(queue).Inc()
}

func (m *Metrics) AuditFailed(reason string) {
	if m == nil {
		return
	}
	m.AuditEventsFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimitRejected.WithLabelValues(scope).Inc()
}
