package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a Prometheus registry and hands out collectors by name.
// Asking twice for the same name returns the first collector, so package
// level vars in different packages can share a metric safely.
type Registry struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	collectors map[string]prometheus.Collector
}

// NewRegistry creates a registry with the Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{reg: reg, collectors: make(map[string]prometheus.Collector)}
}

var Default = NewRegistry()

// DefaultBuckets are latency buckets in seconds for request-scale work.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

func (r *Registry) getOrRegister(name string, mk func(string) prometheus.Collector) prometheus.Collector {
	name = sanitize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collectors[name]; ok {
		return c
	}
	c := mk(name)
	r.reg.MustRegister(c)
	r.collectors[name] = c
	return c
}

func (r *Registry) Counter(name, help string) prometheus.Counter {
	return r.getOrRegister(name, func(n string) prometheus.Collector {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: n, Help: help})
	}).(prometheus.Counter)
}

func (r *Registry) CounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return r.getOrRegister(name, func(n string) prometheus.Collector {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: n, Help: help}, labels)
	}).(*prometheus.CounterVec)
}

func (r *Registry) Gauge(name, help string) prometheus.Gauge {
	return r.getOrRegister(name, func(n string) prometheus.Collector {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: n, Help: help})
	}).(prometheus.Gauge)
}

func (r *Registry) GaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return r.getOrRegister(name, func(n string) prometheus.Collector {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: n, Help: help}, labels)
	}).(*prometheus.GaugeVec)
}

func (r *Registry) Histogram(name, help string, buckets []float64) prometheus.Histogram {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	return r.getOrRegister(name, func(n string) prometheus.Collector {
		return prometheus.NewHistogram(prometheus.HistogramOpts{Name: n, Help: help, Buckets: buckets})
	}).(prometheus.Histogram)
}

func (r *Registry) HistogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	return r.getOrRegister(name, func(n string) prometheus.Collector {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: n, Help: help, Buckets: buckets}, labels)
	}).(*prometheus.HistogramVec)
}

// Gatherer exposes the underlying registry, mostly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler returns an http.Handler that exposes metrics in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Handler is the exposition handler for the Default registry.
func Handler() http.Handler { return Default.Handler() }

func sanitize(s string) string {
	return strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(s)
}
