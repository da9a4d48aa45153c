package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the HTTP surface, the lifecycle and the SLA monitor.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	errors       *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	slaOrders    *prometheus.GaugeVec
	slaAlerts    *prometheus.CounterVec
	scanDuration prometheus.Histogram
}

// NewMetrics registers collectors on reg. A nil registerer yields a no-op Metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route, method and error code.",
		}, []string{"path", "method", "code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "work_order_transitions_total",
			Help: "Status transition attempts by outcome.",
		}, []string{"from", "to", "result"}),
		slaOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "work_order_sla_orders",
			Help: "Open work orders per SLA model and state at the last monitor scan.",
		}, []string{"model", "state"}),
		slaAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "work_order_sla_alerts_total",
			Help: "SLA alerts raised by the monitor.",
		}, []string{"model", "state"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "work_order_sla_scan_duration_seconds",
			Help:    "Duration of SLA monitor scans.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.errors, m.transitions, m.slaOrders, m.slaAlerts, m.scanDuration)
	return m
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordTransition counts a status transition attempt; result is "applied", "rejected" or "conflict".
func (m *Metrics) RecordTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, result).Inc()
}

// SetSLAStateCounts replaces the per-state gauges for one SLA model.
func (m *Metrics) SetSLAStateCounts(model string, counts map[string]int) {
	if m == nil {
		return
	}
	m.slaOrders.DeletePartialMatch(prometheus.Labels{"model": model})
	for state, n := range counts {
		m.slaOrders.WithLabelValues(model, state).Set(float64(n))
	}
}

// RecordSLAAlert counts an alert raised by the monitor.
func (m *Metrics) RecordSLAAlert(model, state string) {
	if m == nil {
		return
	}
	m.slaAlerts.WithLabelValues(model, state).Inc()
}

// ObserveScan records how long one monitor scan took.
func (m *Metrics) ObserveScan(duration time.Duration) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(duration.Seconds())
}
