// metrics.go exposes collector counters to Prometheus.

package collector

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rejection reasons.
const (
	RejectDecode  = "decode"
	RejectInvalid = "invalid"
	RejectStore   = "store"
)

// Metrics counts what the collector received, stored and rejected. Each
// instance owns its registry so several collectors can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	received *prometheus.CounterVec
	stored   *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewMetrics creates and registers the collector metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskerr_reports_received_total",
				Help: "Total number of error reports received",
			},
			[]string{"kind"},
		),
		stored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskerr_reports_stored_total",
				Help: "Total number of error reports stored",
			},
			[]string{"kind"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskerr_reports_rejected_total",
				Help: "Total number of error reports rejected",
			},
			[]string{"reason"},
		),
	}
	m.registry.MustRegister(m.received, m.stored, m.rejected)
	return m
}

// RecordReceived counts a received report of the given kind.
func (m *Metrics) RecordReceived(kind string) {
	m.received.WithLabelValues(kind).Inc()
}

// RecordStored counts a stored report of the given kind.
func (m *Metrics) RecordStored(kind string) {
	m.stored.WithLabelValues(kind).Inc()
}

// RecordRejected counts a rejected report.
func (m *Metrics) RecordRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
