package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the HTTP surface and the
// mutation pipeline.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	MutationsTotal  *prometheus.CounterVec
	RateLimited     prometheus.Counter
	FilesStored     prometheus.Counter
	FilesDeleted    prometheus.Counter
}

// NewMetrics creates and registers all collectors on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "makersite_http_requests_total",
			Help: "Total HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "makersite_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "makersite_mutations_total",
			Help: "Mutation pipeline outcomes by resource, action and result",
		}, []string{"resource", "action", "result"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "makersite_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		FilesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "makersite_files_stored_total",
			Help: "Files written to the file store",
		}),
		FilesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "makersite_files_deleted_total",
			Help: "Files removed from the file store",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.MutationsTotal,
		m.RateLimited,
		m.FilesStored,
		m.FilesDeleted,
	)

	return m
}

// Handler returns the scrape endpoint for this metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
