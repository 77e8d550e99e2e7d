// Package metrics exposes capture counters for the autofixture recorder.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a Prometheus registry holding the capture counters.
type Registry struct {
	registry *prometheus.Registry

	recorded *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	failed   *prometheus.CounterVec
}

// NewRegistry creates a registry with the capture counters pre-registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofixture",
		Name:      "exchanges_recorded_total",
		Help:      "Exchanges persisted as fixtures.",
	}, []string{"app"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofixture",
		Name:      "exchanges_skipped_total",
		Help:      "Exchanges observed but not recorded by policy.",
	}, []string{"app"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofixture",
		Name:      "capture_failures_total",
		Help:      "Capture attempts that failed and were logged.",
	}, []string{"app"})

	reg.MustRegister(recorded, skipped, failed)

	return &Registry{
		registry: reg,
		recorded: recorded,
		skipped:  skipped,
		failed:   failed,
	}
}

// Handler returns an HTTP handler that exposes the registered metrics.
func (r *Registry) Handler() http.Handler {
	if r == nil || r.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Register allows callers to register custom collectors alongside the
// capture counters.
func (r *Registry) Register(c prometheus.Collector) {
	if r == nil || r.registry == nil {
		return
	}
	r.registry.MustRegister(c)
}

// ExchangeRecorded counts a persisted exchange for the given application.
func (r *Registry) ExchangeRecorded(app string) {
	if r == nil {
		return
	}
	r.recorded.WithLabelValues(app).Inc()
}

// ExchangeSkipped counts an exchange the policy declined to record.
func (r *Registry) ExchangeSkipped(app string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(app).Inc()
}

// CaptureFailed counts a capture attempt that ended in a logged failure.
func (r *Registry) CaptureFailed(app string) {
	if r == nil {
		return
	}
	r.failed.WithLabelValues(app).Inc()
}
