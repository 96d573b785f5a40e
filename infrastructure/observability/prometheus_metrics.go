// Package observability implements the metrics port on top of Prometheus.
package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oddsflow/swarm/internal/ports"
)

// namespace prefixes every metric emitted by the swarm.
const namespace = "oddsflow"

// PrometheusMetrics implements ports.MetricsCollector by lazily registering
// one vector per metric name. The label set of a metric is fixed by its
// first observation; later observations with a different label set are
// dropped rather than panicking the process.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	labelKeys  map[string][]string
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a collector bound to the given registry.
// A nil registry gets a fresh one.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &PrometheusMetrics{
		registry:   registry,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		labelKeys:  make(map[string][]string),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

// RecordLatency observes an operation duration in seconds.
func (m *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	keys, values, ok := m.labelPairs(operation, labels)
	if !ok {
		return
	}

	m.mu.Lock()
	vec, exists := m.histograms[operation]
	if !exists {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      operation + "_duration_seconds",
			Help:      "Duration of " + operation + " operations.",
			Buckets:   prometheus.DefBuckets,
		}, keys)
		if err := m.registry.Register(vec); err != nil {
			m.mu.Unlock()
			return
		}
		m.histograms[operation] = vec
	}
	m.mu.Unlock()

	vec.WithLabelValues(values...).Observe(duration.Seconds())
}

// RecordCounter adds value to a counter.
func (m *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	keys, values, ok := m.labelPairs(metric, labels)
	if !ok {
		return
	}

	m.mu.Lock()
	vec, exists := m.counters[metric]
	if !exists {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      metric,
			Help:      "Count of " + metric + " events.",
		}, keys)
		if err := m.registry.Register(vec); err != nil {
			m.mu.Unlock()
			return
		}
		m.counters[metric] = vec
	}
	m.mu.Unlock()

	vec.WithLabelValues(values...).Add(value)
}

// RecordGauge sets a gauge to value.
func (m *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	keys, values, ok := m.labelPairs(metric, labels)
	if !ok {
		return
	}

	m.mu.Lock()
	vec, exists := m.gauges[metric]
	if !exists {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      metric,
			Help:      "Current value of " + metric + ".",
		}, keys)
		if err := m.registry.Register(vec); err != nil {
			m.mu.Unlock()
			return
		}
		m.gauges[metric] = vec
	}
	m.mu.Unlock()

	vec.WithLabelValues(values...).Set(value)
}

// labelPairs returns the metric's label keys in canonical order and the
// matching values. The first observation pins the key set; a mismatched
// later set returns ok=false.
func (m *PrometheusMetrics) labelPairs(metric string, labels map[string]string) (keys, values []string, ok bool) {
	m.mu.Lock()
	pinned, exists := m.labelKeys[metric]
	if !exists {
		pinned = make([]string, 0, len(labels))
		for k := range labels {
			pinned = append(pinned, k)
		}
		sort.Strings(pinned)
		m.labelKeys[metric] = pinned
	}
	m.mu.Unlock()

	if len(labels) != len(pinned) {
		return nil, nil, false
	}
	values = make([]string, len(pinned))
	for i, k := range pinned {
		v, present := labels[k]
		if !present {
			return nil, nil, false
		}
		values[i] = v
	}
	return pinned, values, true
}
