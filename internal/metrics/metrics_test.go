package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/v1/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/items/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestSubscriberGauge(t *testing.T) {
	m := New()
	m.SubscriberConnected()
	m.SubscriberConnected()
	m.SubscriberGone()
	m.SubscriberDropped()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.liveSubscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.liveDropped))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SubscriberConnected()
		m.SubscriberGone()
		m.SubscriberDropped()
		m.LegacyRequest(LegacyOK)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.LegacyRequest(LegacyWrongPassword)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `vertretungsplan_legacy_requests_total{outcome="wrong_password"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
