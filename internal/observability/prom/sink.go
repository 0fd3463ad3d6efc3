// Package prom exposes metrics emitted through statsd.Sink on a Prometheus registry.
package prom

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/periwatch/brief-api/internal/observability/statsd"
)

// Options configures a Sink.
type Options struct {
	Namespace string
	Logger    *slog.Logger
	// Registry defaults to a fresh registry with Go and process collectors.
	Registry *prometheus.Registry
}

// Sink creates Prometheus collectors lazily, keyed by metric name. The label
// set of a metric is fixed by the tags of its first observation; later tags not
// in that set are dropped and missing ones are reported as "".
type Sink struct {
	namespace string
	registry  *prometheus.Registry
	logger    *slog.Logger

	mu         sync.Mutex
	counters   map[string]*vec[*prometheus.CounterVec]
	gauges     map[string]*vec[*prometheus.GaugeVec]
	histograms map[string]*vec[*prometheus.HistogramVec]
}

type vec[T any] struct {
	collector T
	labels    []string
}

var _ statsd.Sink = (*Sink)(nil)

// NewSink constructs a Sink.
func NewSink(opts Options) *Sink {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		namespace:  sanitize(opts.Namespace),
		registry:   reg,
		logger:     logger.With("component", "prometheus_sink"),
		counters:   make(map[string]*vec[*prometheus.CounterVec]),
		gauges:     make(map[string]*vec[*prometheus.GaugeVec]),
		histograms: make(map[string]*vec[*prometheus.HistogramVec]),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Registry returns the underlying registry.
func (s *Sink) Registry() *prometheus.Registry { return s.registry }

// Count implements statsd.Sink.
func (s *Sink) Count(name string, value int64, tags map[string]string) {
	if value < 0 {
		return
	}
	s.mu.Lock()
	v, ok := s.counters[name]
	if !ok {
		labels := labelNames(tags)
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Name:      sanitize(name) + "_total",
			Help:      "Counter " + name + ".",
		}, labels)
		if !s.register(name, cv) {
			s.mu.Unlock()
			return
		}
		v = &vec[*prometheus.CounterVec]{collector: cv, labels: labels}
		s.counters[name] = v
	}
	s.mu.Unlock()

	if c, err := v.collector.GetMetricWith(labelValues(v.labels, tags)); err == nil {
		c.Add(float64(value))
	}
}

// Gauge implements statsd.Sink.
func (s *Sink) Gauge(name string, value float64, tags map[string]string) {
	s.mu.Lock()
	v, ok := s.gauges[name]
	if !ok {
		labels := labelNames(tags)
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Name:      sanitize(name),
			Help:      "Gauge " + name + ".",
		}, labels)
		if !s.register(name, gv) {
			s.mu.Unlock()
			return
		}
		v = &vec[*prometheus.GaugeVec]{collector: gv, labels: labels}
		s.gauges[name] = v
	}
	s.mu.Unlock()

	if g, err := v.collector.GetMetricWith(labelValues(v.labels, tags)); err == nil {
		g.Set(value)
	}
}

// Timing implements statsd.Sink. Durations are observed in seconds.
func (s *Sink) Timing(name string, value time.Duration, tags map[string]string) {
	s.mu.Lock()
	v, ok := s.histograms[name]
	if !ok {
		labels := labelNames(tags)
		hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Name:      sanitize(name) + "_seconds",
			Help:      "Duration of " + name + ".",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, labels)
		if !s.register(name, hv) {
			s.mu.Unlock()
			return
		}
		v = &vec[*prometheus.HistogramVec]{collector: hv, labels: labels}
		s.histograms[name] = v
	}
	s.mu.Unlock()

	if h, err := v.collector.GetMetricWith(labelValues(v.labels, tags)); err == nil {
		h.Observe(value.Seconds())
	}
}

func (s *Sink) register(name string, c prometheus.Collector) bool {
	if err := s.registry.Register(c); err != nil {
		s.logger.Warn("prometheus register failed", "metric", name, "error", err)
		return false
	}
	return true
}

func labelNames(tags map[string]string) []string {
	merged := statsd.MergeTags(nil, tags)
	keys := statsd.SortedKeys(merged)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = sanitize(k)
	}
	return out
}

func labelValues(names []string, tags map[string]string) prometheus.Labels {
	byName := make(map[string]string, len(tags))
	for k, v := range statsd.MergeTags(nil, tags) {
		byName[sanitize(k)] = v
	}
	labels := make(prometheus.Labels, len(names))
	for _, n := range names {
		labels[n] = byName[n]
	}
	return labels
}

// sanitize maps a dotted metric or tag name onto the Prometheus charset.
func sanitize(name string) string {
	name = statsd.NormalizeMetricName(name)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
