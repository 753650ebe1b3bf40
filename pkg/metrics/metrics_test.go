package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trexinity/another/pkg/metrics"
)

func TestMetrics_Recording(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.CatalogLoaded(3, 1)
	m.CounterTransaction("like", "committed")
	m.CounterTransaction("like", "committed")
	m.TransactionRetry("view")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CatalogTitles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterTransactions.WithLabelValues("like", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionRetries.WithLabelValues("view")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.CatalogLoaded(1, 0)
		m.CounterTransaction("view", "error")
		m.WatchlistMutation("add", "local")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.EventPublished("title.liked")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_events_published_total{type="title.liked"} 1`)
}
