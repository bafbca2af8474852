package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics exposes service counters on a private Prometheus registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	ingested        *prometheus.CounterVec
	passes          *prometheus.CounterVec
	escalations     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	subscribers     prometheus.Gauge
}

// NewMetrics initializes and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by route, method and error code",
		}, []string{"path", "method", "code"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickets_ingested_total",
			Help: "Ingested ticket snapshots by outcome (created, updated, skipped)",
		}, []string{"outcome"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escalation_passes_total",
			Help: "Escalation workflow passes by result",
		}, []string{"result"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escalations_total",
			Help: "Escalation notifications raised by level",
		}, []string{"level"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by sink and result",
		}, []string{"sink", "result"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_subscribers",
			Help: "Currently connected live alert subscribers",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.ingested,
		m.passes,
		m.escalations,
		m.notifications,
		m.subscribers,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordIngest adds the outcome counts of one committed batch.
func (m *Metrics) RecordIngest(created, updated, skipped int) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues("created").Add(float64(created))
	m.ingested.WithLabelValues("updated").Add(float64(updated))
	m.ingested.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordEscalationPass counts a finished workflow pass; result is "ok", "failed" or "skipped".
func (m *Metrics) RecordEscalationPass(result string) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
}

// RecordEscalation counts one escalation event.
func (m *Metrics) RecordEscalation(level string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(level).Inc()
}

// RecordNotification counts a delivery attempt on a sink.
func (m *Metrics) RecordNotification(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(sink, result).Inc()
}

// SetSubscribers reports the size of the live subscriber set.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
