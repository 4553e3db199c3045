package promadapters

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

// LabelNames are the label dimensions every directory metric carries. Labels outside this set are
// dropped, missing ones are exported as "".
var LabelNames = []string{"operation", "status", "backend", "error_type"}

// MetricsCollector implements directory.MetricsCollector with Prometheus vectors:
//   - RecordDuration observes a histogram named <metric>_seconds
//   - IncrementCounter increments a counter named <metric>_total
//   - RecordValue sets a gauge named <metric>
//
// Vectors are created and registered on first use. It is safe for concurrent use.
type MetricsCollector struct {
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// Option defines a functional option for configuring a MetricsCollector.
type Option func(*MetricsCollector)

// WithBuckets overrides the histogram buckets, prometheus.DefBuckets otherwise.
func WithBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		m.buckets = buckets
	}
}

// NewMetricsCollector creates a collector registering its vectors on registerer.
func NewMetricsCollector(registerer prometheus.Registerer, options ...Option) *MetricsCollector {
	m := &MetricsCollector{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// RecordDuration observes duration in seconds.
func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	if vec := m.histogram(metric); vec != nil {
		vec.With(normalize(labels)).Observe(duration.Seconds())
	}
}

// IncrementCounter increments a counter by one.
func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	if vec := m.counter(metric); vec != nil {
		vec.With(normalize(labels)).Inc()
	}
}

// RecordValue sets a gauge to value.
func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	if vec := m.gauge(metric); vec != nil {
		vec.With(normalize(labels)).Set(value)
	}
}

func (m *MetricsCollector) histogram(metric string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.histograms[metric]; ok {
		return vec
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metric + "_seconds",
		Help:    "Provider directory operation duration in seconds",
		Buckets: m.buckets,
	}, LabelNames)

	vec, ok := register(m.registerer, vec)
	if !ok {
		return nil
	}
	m.histograms[metric] = vec

	return vec
}

func (m *MetricsCollector) counter(metric string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.counters[metric]; ok {
		return vec
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metric + "_total",
		Help: "Provider directory operation counter",
	}, LabelNames)

	vec, ok := register(m.registerer, vec)
	if !ok {
		return nil
	}
	m.counters[metric] = vec

	return vec
}

func (m *MetricsCollector) gauge(metric string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.gauges[metric]; ok {
		return vec
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: metric,
		Help: "Provider directory current value",
	}, LabelNames)

	vec, ok := register(m.registerer, vec)
	if !ok {
		return nil
	}
	m.gauges[metric] = vec

	return vec
}

// register registers c, or returns the collector already registered under the same descriptor.
// It reports false if the registerer rejects c for any other reason; measurements are dropped then.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, bool) {
	err := registerer.Register(c)
	if err == nil {
		return c, true
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, true
		}
	}

	var zero C

	return zero, false
}

func normalize(labels map[string]string) prometheus.Labels {
	out := make(prometheus.Labels, len(LabelNames))
	for _, name := range LabelNames {
		out[name] = labels[name]
	}

	return out
}

var _ directory.MetricsCollector = (*MetricsCollector)(nil)
