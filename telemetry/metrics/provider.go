// Package metrics exposes a small Provider abstraction over Prometheus,
// mirroring the teacher's telemetry/metrics package: a registry-backed
// implementation for production, and a no-op for tests and defaults.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider is the metrics surface every package records through. Counter
// and gauge names are plain Prometheus metric names
// ("blundertutor_games_analyzed_total"); this module never needs labels
// on its fixed, small metric set.
type Provider interface {
	IncCounter(name string, delta float64)
	SetGauge(name string, value float64)
	ObserveHistogram(name string, value float64)
}

// HandlerProvider is implemented by providers that can serve a /metrics
// endpoint.
type HandlerProvider interface {
	Handler() http.Handler
}

type noopProvider struct{}

// NoOp returns a Provider that discards everything.
func NoOp() Provider { return noopProvider{} }

func (noopProvider) IncCounter(string, float64)      {}
func (noopProvider) SetGauge(string, float64)        {}
func (noopProvider) ObserveHistogram(string, float64) {}

// PrometheusProvider backs Provider with a real Prometheus registry,
// lazily registering each metric the first time it is named.
type PrometheusProvider struct {
	reg *prom.Registry

	mu         sync.Mutex
	counters   map[string]prom.Counter
	gauges     map[string]prom.Gauge
	histograms map[string]prom.Histogram

	handler http.Handler
}

// NewPrometheusProvider constructs a provider backed by reg, or a fresh
// registry when reg is nil.
func NewPrometheusProvider(reg *prom.Registry) *PrometheusProvider {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return &PrometheusProvider{
		reg:        reg,
		counters:   make(map[string]prom.Counter),
		gauges:     make(map[string]prom.Gauge),
		histograms: make(map[string]prom.Histogram),
		handler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

// Handler exposes the Prometheus exposition format over HTTP.
func (p *PrometheusProvider) Handler() http.Handler { return p.handler }

func (p *PrometheusProvider) counter(name string) prom.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	c := prom.NewCounter(prom.CounterOpts{Name: name, Help: fmt.Sprintf("%s (counter)", name)})
	if err := p.reg.Register(c); err != nil {
		if are, ok := err.(prom.AlreadyRegisteredError); ok {
			c = are.ExistingCollector.(prom.Counter)
		}
	}
	p.counters[name] = c
	return c
}

func (p *PrometheusProvider) gauge(name string) prom.Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[name]; ok {
		return g
	}
	g := prom.NewGauge(prom.GaugeOpts{Name: name, Help: fmt.Sprintf("%s (gauge)", name)})
	if err := p.reg.Register(g); err != nil {
		if are, ok := err.(prom.AlreadyRegisteredError); ok {
			g = are.ExistingCollector.(prom.Gauge)
		}
	}
	p.gauges[name] = g
	return g
}

func (p *PrometheusProvider) histogram(name string) prom.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h := prom.NewHistogram(prom.HistogramOpts{Name: name, Help: fmt.Sprintf("%s (histogram)", name)})
	if err := p.reg.Register(h); err != nil {
		if are, ok := err.(prom.AlreadyRegisteredError); ok {
			h = are.ExistingCollector.(prom.Histogram)
		}
	}
	p.histograms[name] = h
	return h
}

func (p *PrometheusProvider) IncCounter(name string, delta float64) {
	p.counter(name).Add(delta)
}

func (p *PrometheusProvider) SetGauge(name string, value float64) {
	p.gauge(name).Set(value)
}

func (p *PrometheusProvider) ObserveHistogram(name string, value float64) {
	p.histogram(name).Observe(value)
}
