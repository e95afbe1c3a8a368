package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"presence-sync-service/internal/metrics"
)

func setupMetricsTest(t *testing.T) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.NewWithRegistry(prometheus.NewRegistry(), nil)
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/users/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, m
}

func get(r *gin.Engine, path string) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	r, m := setupMetricsTest(t)

	get(r, "/api/users/abc")
	get(r, "/api/users/def")

	// Both requests land on the pattern label, not the concrete paths
	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/users/:id", "200")))
}

func TestMetrics_FoldsUnmatchedRoutes(t *testing.T) {
	r, m := setupMetricsTest(t)

	get(r, "/no/such/route")
	get(r, "/another/miss")

	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestMetrics_SkipsHealthEndpoint(t *testing.T) {
	r, m := setupMetricsTest(t)

	get(r, "/health")

	assert.Equal(t, float64(0), testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")))
}
