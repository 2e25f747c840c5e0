// Package metrics exposes Prometheus counters for the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	requestsTotal    *prometheus.CounterVec
	batchesSent      *prometheus.CounterVec
	batchesFailed    *prometheus.CounterVec
	tokensDispatched *prometheus.CounterVec
	tokensResolved   prometheus.Counter
	documentsScanned prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_requests_total",
				Help: "Notification requests by target kind and outcome",
			},
			[]string{"target", "outcome"},
		),
		batchesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_batches_sent_total",
				Help: "Provider calls that succeeded",
			},
			[]string{"kind"},
		),
		batchesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_batches_failed_total",
				Help: "Provider calls that failed and were skipped",
			},
			[]string{"kind"},
		),
		tokensDispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_tokens_dispatched_total",
				Help: "Tokens handed to the provider by outcome",
			},
			[]string{"outcome"},
		),
		tokensResolved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notification_tokens_resolved_total",
				Help: "Unique tokens produced by target resolution",
			},
		),
		documentsScanned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notification_documents_scanned_total",
				Help: "Documents read while resolving collection and document targets",
			},
		),
	}
}

// RecordRequest counts a request by target kind ("token", "topic",
// "collection", "document", "none") and outcome ("accepted", "rejected").
func (m *Metrics) RecordRequest(target, outcome string) {
	m.requestsTotal.WithLabelValues(target, outcome).Inc()
}

// RecordResolution counts one resolved page or document.
func (m *Metrics) RecordResolution(scanned, tokens int) {
	m.documentsScanned.Add(float64(scanned))
	m.tokensResolved.Add(float64(tokens))
}

func (m *Metrics) BatchSent(kind string, size int) {
	m.batchesSent.WithLabelValues(kind).Inc()
	m.tokensDispatched.WithLabelValues("sent").Add(float64(size))
}

func (m *Metrics) BatchFailed(kind string, size int) {
	m.batchesFailed.WithLabelValues(kind).Inc()
	m.tokensDispatched.WithLabelValues("failed").Add(float64(size))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
