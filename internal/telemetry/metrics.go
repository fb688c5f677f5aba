// Package telemetry exposes Prometheus collectors for engine calls and HTTP traffic.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors on one registry
type Metrics struct {
	registry *prometheus.Registry

	engineCalls    *prometheus.CounterVec
	engineDuration *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	orphans        prometheus.Counter
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		engineCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "housepricer_engine_calls_total",
			Help: "Estimator engine invocations by mode and outcome",
		}, []string{"mode", "outcome"}),
		engineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "housepricer_engine_duration_seconds",
			Help:    "Wall time of estimator engine invocations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "housepricer_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "housepricer_orphaned_properties_total",
			Help: "Properties stored without their prediction",
		}),
	}
	reg.MustRegister(m.engineCalls, m.engineDuration, m.httpRequests, m.orphans)
	return m
}

// ObserveEngineCall records one estimator invocation
func (m *Metrics) ObserveEngineCall(mode, outcome string, elapsed time.Duration) {
	m.engineCalls.WithLabelValues(mode, outcome).Inc()
	m.engineDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route string, status int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ReportOrphan counts a property left without a prediction
func (m *Metrics) ReportOrphan(context.Context, string, error) {
	m.orphans.Inc()
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
