// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the registry and the instruments for matching, resolution and
// the HTTP surface. All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	matchTotal      *prometheus.CounterVec
	matchExpansions prometheus.Histogram

	resolutionTotal    *prometheus.CounterVec
	resolutionDepths   prometheus.Histogram
	resolutionDuration prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics set on its own registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		matchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "molstack_match_total",
			Help: "Correspondence searches by outcome.",
		}, []string{"outcome"}),
		matchExpansions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "molstack_match_expansions",
			Help:    "Node expansions spent per correspondence search.",
			Buckets: prometheus.ExponentialBuckets(10, 10, 6),
		}),
		resolutionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "molstack_resolution_total",
			Help: "Resolution passes by outcome.",
		}, []string{"outcome"}),
		resolutionDepths: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "molstack_resolution_folded_depths",
			Help:    "Stack depths folded per resolution pass.",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		resolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "molstack_resolution_duration_seconds",
			Help:    "Wall time per resolution pass.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "molstack_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "molstack_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	registry.MustRegister(
		m.matchTotal,
		m.matchExpansions,
		m.resolutionTotal,
		m.resolutionDepths,
		m.resolutionDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMatch records one correspondence search
func (m *Metrics) ObserveMatch(outcome string, expansions int) {
	m.matchTotal.WithLabelValues(outcome).Inc()
	m.matchExpansions.Observe(float64(expansions))
}

// ObserveResolution records one resolution pass
func (m *Metrics) ObserveResolution(outcome string, foldedDepths int, duration time.Duration) {
	m.resolutionTotal.WithLabelValues(outcome).Inc()
	if foldedDepths > 0 {
		m.resolutionDepths.Observe(float64(foldedDepths))
	}
	m.resolutionDuration.Observe(duration.Seconds())
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
