package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsWith_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	m.AnalysesTotal.WithLabelValues("SELL").Inc()
	m.AnalysesTotal.WithLabelValues("SELL").Inc()
	m.CacheHits.WithLabelValues("redis").Inc()

	assert.Equal(t, 2.0, counterValue(t, reg, "advisor_analyses_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "advisor_cache_hits_total"))

	// A second set on a fresh registry must not panic on duplicate registration.
	assert.NotPanics(t, func() { NewMetricsWith(prometheus.NewRegistry()) })
}

func TestHealthStatus_Status(t *testing.T) {
	h := NewHealthStatus()
	assert.Equal(t, "healthy", h.Status())

	h.EnableRedis()
	assert.Equal(t, "degraded", h.Status(), "redis enabled but never probed")

	h.SetRedisConnected(true)
	assert.Equal(t, "healthy", h.Status())

	h.RecordFetch(errors.New("upstream 502"))
	assert.Equal(t, "degraded", h.Status(), "redis can still serve cached series")

	h.SetRedisConnected(false)
	assert.Equal(t, "unhealthy", h.Status())

	h.RecordFetch(nil)
	assert.Equal(t, "degraded", h.Status())
}

func TestHealthStatus_ServeHTTP(t *testing.T) {
	h := NewHealthStatus()
	h.RecordAnalysis(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2024-05-01T00:00:00Z", body["last_analysis_at"])

	h.EnableStore()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var total float64
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
