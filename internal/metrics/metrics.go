// Package metrics exposes Prometheus collectors for the HTTP API and the
// live plan feed.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vertretungsplan"

// Legacy request outcomes.
const (
	LegacyOK             = "ok"
	LegacyMissingANZ     = "missing_anz"
	LegacyWrongHash      = "wrong_securehash"
	LegacyWrongPassword  = "wrong_password"
	LegacyRateLimited    = "rate_limited"
	LegacyInternalFailed = "error"
)

// Metrics bundles the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	liveSubscribers prometheus.Gauge
	liveDropped     prometheus.Counter
	legacyRequests  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Connected live plan feed clients.",
		}),
		liveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_dropped_clients_total",
			Help:      "Live feed clients disconnected for not keeping up.",
		}),
		legacyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_requests_total",
			Help:      "Legacy endpoint requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.liveSubscribers, m.liveDropped, m.legacyRequests,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records every request under its route template so path
// parameters do not blow up label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// The methods below are nil-safe so components can run without metrics.

func (m *Metrics) SubscriberConnected() {
	if m != nil {
		m.liveSubscribers.Inc()
	}
}

func (m *Metrics) SubscriberGone() {
	if m != nil {
		m.liveSubscribers.Dec()
	}
}

func (m *Metrics) SubscriberDropped() {
	if m != nil {
		m.liveDropped.Inc()
	}
}

func (m *Metrics) LegacyRequest(outcome string) {
	if m != nil {
		m.legacyRequests.WithLabelValues(outcome).Inc()
	}
}
