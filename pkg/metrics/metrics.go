// Package metrics holds the Prometheus collectors of the storefront.
// All recording methods are safe on a nil *Metrics, which disables them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics groups every collector.
type Metrics struct {
	gatherer prometheus.Gatherer

	CatalogLoads        *prometheus.CounterVec
	CatalogTitles       prometheus.Gauge
	CatalogSkipped      prometheus.Counter
	CounterTransactions *prometheus.CounterVec
	TransactionRetries  *prometheus.CounterVec
	WatchlistMutations  *prometheus.CounterVec
	Uploads             *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
	HTTPRequestDuration *prometheus.HistogramVec
	EventsPublished     *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		CatalogLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Catalog loads by result",
		}, []string{"result"}),

		CatalogTitles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_titles",
			Help:      "Titles in the current catalog snapshot",
		}),

		CatalogSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_skipped_records_total",
			Help:      "Title records rejected at the store boundary",
		}),

		CounterTransactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_transactions_total",
			Help:      "View and like transactions by outcome",
		}, []string{"op", "result"}), // op: view, like; result: committed, conflict, error

		TransactionRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_retries_total",
			Help:      "Optimistic transaction attempts lost to a concurrent writer",
		}, []string{"op"}),

		WatchlistMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchlist_mutations_total",
			Help:      "Watchlist add and remove calls",
		}, []string{"op", "backend"}),

		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Studio asset uploads by kind and result",
		}, []string{"kind", "result"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published by type",
		}, []string{"type"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) CatalogLoaded(titles, skipped int) {
	if m == nil {
		return
	}
	m.CatalogLoads.WithLabelValues("ok").Inc()
	m.CatalogTitles.Set(float64(titles))
	m.CatalogSkipped.Add(float64(skipped))
}

func (m *Metrics) CatalogLoadFailed() {
	if m == nil {
		return
	}
	m.CatalogLoads.WithLabelValues("error").Inc()
}

func (m *Metrics) CounterTransaction(op, result string) {
	if m == nil {
		return
	}
	m.CounterTransactions.WithLabelValues(op, result).Inc()
}

func (m *Metrics) TransactionRetry(op string) {
	if m == nil {
		return
	}
	m.TransactionRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) WatchlistMutation(op, backend string) {
	if m == nil {
		return
	}
	m.WatchlistMutations.WithLabelValues(op, backend).Inc()
}

func (m *Metrics) Upload(kind, result string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}
