// Package metrics defines the Prometheus instruments shared by the API gateway
// and the transaction processor.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wallet"

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	ledgerOperations *prometheus.CounterVec
	ledgerDuration   *prometheus.HistogramVec
	ledgerAmount     *prometheus.CounterVec
	gatewayRequests  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	outboxMessages   *prometheus.CounterVec
	captureMessages  *prometheus.CounterVec
}

// New registers every instrument on a dedicated registry together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newWithRegistry(reg)
}

func newWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ledgerOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by outcome",
		}, []string{"operation", "outcome"}),
		ledgerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ledgerAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "amount_minor_units_total",
			Help:      "Money moved through completed transactions, in minor units",
		}, []string{"type"}),
		gatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Payment provider calls by outcome",
		}, []string{"provider", "operation", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		outboxMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "messages_total",
			Help:      "Outbox messages relayed by outcome",
		}, []string{"event_type", "outcome"}),
		captureMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "capture_notifications_total",
			Help:      "Capture notifications consumed by outcome",
		}, []string{"provider", "outcome"}),
	}
}

// ObserveLedgerOperation records one ledger call and its latency
func (m *Metrics) ObserveLedgerOperation(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.ledgerOperations.WithLabelValues(operation, outcome).Inc()
	m.ledgerDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// AddAmount adds completed money movement for a transaction type
func (m *Metrics) AddAmount(txType string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.ledgerAmount.WithLabelValues(txType).Add(float64(amount))
}

func (m *Metrics) ObserveGatewayRequest(provider, operation, outcome string) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(provider, operation, outcome).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveOutboxMessage(eventType, outcome string) {
	if m == nil {
		return
	}
	m.outboxMessages.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveCaptureNotification(provider, outcome string) {
	if m == nil {
		return
	}
	m.captureMessages.WithLabelValues(provider, outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
