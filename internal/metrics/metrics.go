// Package metrics exposes Prometheus metrics for catalog loading and
// recurrence expansion.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers the metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// Manager owns the calendar's metrics and the registry they live in.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	refreshes       *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	expandDuration  prometheus.Histogram
	templates       prometheus.Gauge
	occurrences     prometheus.Gauge
	warnings        prometheus.Counter
	truncated       prometheus.Counter
	lastSuccessUnix prometheus.Gauge
	proxyRequests   *prometheus.CounterVec
}

// NewManager creates and registers every metric.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "rokcal",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "catalog_refreshes_total",
		Help:      "Catalog refreshes by result (ok, error, superseded).",
	}, []string{"result"})
	m.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "catalog_load_duration_seconds",
		Help:      "Time spent loading the template catalog.",
		Buckets:   prometheus.DefBuckets,
	})
	m.expandDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "expand_duration_seconds",
		Help:      "Time spent expanding templates and building the index.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})
	m.templates = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "templates",
		Help:      "Templates in the current catalog.",
	})
	m.occurrences = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "occurrences",
		Help:      "Occurrences in the current index.",
	})
	m.warnings = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "expand_warnings_total",
		Help:      "Templates or patterns skipped or expanded with a fallback.",
	})
	m.truncated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "expand_truncated_total",
		Help:      "Templates that hit the per-template occurrence cap.",
	})
	m.lastSuccessUnix = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "catalog_last_success_unix",
		Help:      "Unix time of the last successful refresh.",
	})
	m.proxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "proxy_requests_total",
		Help:      "Proxy requests by HTTP status code.",
	}, []string{"code"})

	m.registry.MustRegister(
		m.refreshes, m.fetchDuration, m.expandDuration, m.templates,
		m.occurrences, m.warnings, m.truncated, m.lastSuccessUnix,
		m.proxyRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) Registry() *prometheus.Registry { return m.registry }

func (m *Manager) RecordRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
	if result == "ok" {
		m.lastSuccessUnix.Set(float64(time.Now().Unix()))
	}
}

func (m *Manager) ObserveLoad(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

// ObserveExpand records one expansion pass and the resulting sizes.
func (m *Manager) ObserveExpand(d time.Duration, templates, occurrences, warnings, truncated int) {
	if m == nil {
		return
	}
	m.expandDuration.Observe(d.Seconds())
	m.templates.Set(float64(templates))
	m.occurrences.Set(float64(occurrences))
	m.warnings.Add(float64(warnings))
	m.truncated.Add(float64(truncated))
}

func (m *Manager) RecordProxy(code int) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(strconv.Itoa(code)).Inc()
}
