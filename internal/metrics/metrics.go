// Package metrics defines the Prometheus instruments of the scheduler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cinema_scheduler"

// Metrics holds the scheduler's collectors, all registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	// ScreeningsTotal counts add-screening attempts by outcome kind.
	ScreeningsTotal *prometheus.CounterVec

	// AddScreeningDuration observes the latency of add-screening calls.
	AddScreeningDuration prometheus.Histogram

	// StaleRetries counts re-reads after a lost optimistic-concurrency race.
	StaleRetries prometheus.Counter

	// EventsPublished counts event publications by status.
	EventsPublished *prometheus.CounterVec

	// CatalogReloads counts successful catalog reloads.
	CatalogReloads prometheus.Counter

	// HTTPRequests counts requests by method, route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes request latency by route.
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go
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
		ScreeningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "screenings_total",
				Help:      "Add-screening attempts by outcome",
			},
			[]string{"outcome"},
		),
		AddScreeningDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "add_screening_duration_seconds",
				Help:      "Time to validate and store a screening",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
			},
		),
		StaleRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_version_retries_total",
				Help:      "Retries after a stale version was reported by the store",
			},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Published screening events by status",
			},
			[]string{"status"},
		),
		CatalogReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Successful catalog reloads",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveScreening records one add-screening attempt.
func (m *Metrics) ObserveScreening(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ScreeningsTotal.WithLabelValues(outcome).Inc()
	m.AddScreeningDuration.Observe(elapsed.Seconds())
}

// IncStaleRetry records a stale-version retry.
func (m *Metrics) IncStaleRetry() {
	if m == nil {
		return
	}
	m.StaleRetries.Inc()
}

// IncPublished records an event publication result.
func (m *Metrics) IncPublished(status string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(status).Inc()
}

// IncCatalogReload records a catalog reload.
func (m *Metrics) IncCatalogReload() {
	if m == nil {
		return
	}
	m.CatalogReloads.Inc()
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
