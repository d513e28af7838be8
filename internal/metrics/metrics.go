// Package metrics exposes prometheus collectors for vendor calls and
// verification outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/byok/internal/provider"
)

const namespace = "byok"

// Metrics implements provider.Observer and verify.Observer.
type Metrics struct {
	registry *prometheus.Registry

	VendorRequestsTotal   *prometheus.CounterVec
	VendorRequestDuration *prometheus.HistogramVec
	VerificationsTotal    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		VendorRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vendor_requests_total",
				Help:      "Total outbound vendor requests",
			},
			[]string{"provider", "operation", "outcome"},
		),
		VendorRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vendor_request_duration_seconds",
				Help:      "Outbound vendor request duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "operation"},
		),
		VerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Key and model verification outcomes",
			},
			[]string{"provider", "result", "source"},
		),
	}
}

// ObserveRequest records one outbound vendor request.
func (m *Metrics) ObserveRequest(p provider.ID, operation, outcome string, elapsed time.Duration) {
	m.VendorRequestsTotal.WithLabelValues(string(p), operation, outcome).Inc()
	m.VendorRequestDuration.WithLabelValues(string(p), operation).Observe(elapsed.Seconds())
}

// ObserveVerification records one verification result.
func (m *Metrics) ObserveVerification(p provider.ID, result, source string) {
	m.VerificationsTotal.WithLabelValues(string(p), result, source).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
