package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveScreening(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveScreening("success", 5*time.Millisecond)
	m.ObserveScreening("success", time.Millisecond)
	m.ObserveScreening("conflicting_screenings", time.Millisecond)
	m.IncStaleRetry()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScreeningsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScreeningsTotal.WithLabelValues("conflicting_screenings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleRetries))

	count, err := testutil.GatherAndCount(m.Registry(), "cinema_scheduler_screenings_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilMetricsAreNoops(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScreening("success", time.Millisecond)
		m.IncStaleRetry()
		m.IncPublished("ok")
		m.IncCatalogReload()
		m.ObserveHTTP("GET", "/healthz", "200", time.Millisecond)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveHTTP("GET", "/healthz", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "cinema_scheduler_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
