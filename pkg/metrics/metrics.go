// Package metrics provides a small dependency-free counter/histogram
// registry with Prometheus-compatible text exposition.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// ErrLabelCountMismatch is returned when the number of label values doesn't
// match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// DefaultBuckets are the default histogram buckets, in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// Counter is a monotonically increasing metric keyed by label values.
type Counter struct {
	name       string
	help       string
	labelNames []string
	mu         sync.Mutex
	values     map[string]float64
}

// NewCounter creates a counter with the given label names.
func NewCounter(name, help string, labelNames ...string) *Counter {
	return &Counter{
		name:       name,
		help:       help,
		labelNames: labelNames,
		values:     make(map[string]float64),
	}
}

// Inc increments the counter for the given label values by 1.
func (c *Counter) Inc(labelValues ...string) error {
	return c.Add(1, labelValues...)
}

// Add adds delta to the counter for the given label values.
func (c *Counter) Add(delta float64, labelValues ...string) error {
	if len(labelValues) != len(c.labelNames) {
		return fmt.Errorf("%w: counter %s expected %d labels, got %d",
			ErrLabelCountMismatch, c.name, len(c.labelNames), len(labelValues))
	}
	key := labelsKey(labelValues)
	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
	return nil
}

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name       string
	help       string
	labelNames []string
	buckets    []float64
	mu         sync.Mutex
	series     map[string]*histogramSeries
}

type histogramSeries struct {
	counts []uint64
	sum    float64
	count  uint64
}

// NewHistogram creates a histogram with the given buckets and label names.
// Nil buckets means DefaultBuckets.
func NewHistogram(name, help string, buckets []float64, labelNames ...string) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return &Histogram{
		name:       name,
		help:       help,
		labelNames: labelNames,
		buckets:    buckets,
		series:     make(map[string]*histogramSeries),
	}
}

// Observe records a value for the given label values.
func (h *Histogram) Observe(value float64, labelValues ...string) error {
	if len(labelValues) != len(h.labelNames) {
		return fmt.Errorf("%w: histogram %s expected %d labels, got %d",
			ErrLabelCountMismatch, h.name, len(h.labelNames), len(labelValues))
	}
	key := labelsKey(labelValues)
	h.mu.Lock()
	s, ok := h.series[key]
	if !ok {
		s = &histogramSeries{counts: make([]uint64, len(h.buckets))}
		h.series[key] = s
	}
	for i, upper := range h.buckets {
		if value <= upper {
			s.counts[i]++
		}
	}
	s.sum += value
	s.count++
	h.mu.Unlock()
	return nil
}

func labelsKey(values []string) string {
	return strings.Join(values, "\x00")
}

// Registry holds metrics for exposition.
type Registry struct {
	mu         sync.Mutex
	counters   []*Counter
	histograms []*Histogram
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterCounter adds a counter to the registry.
func (r *Registry) RegisterCounter(c *Counter) {
	r.mu.Lock()
	r.counters = append(r.counters, c)
	r.mu.Unlock()
}

// RegisterHistogram adds a histogram to the registry.
func (r *Registry) RegisterHistogram(h *Histogram) {
	r.mu.Lock()
	r.histograms = append(r.histograms, h)
	r.mu.Unlock()
}

// Handler returns an http.Handler exposing the registry in Prometheus text
// format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		var b strings.Builder
		r.mu.Lock()
		counters := append([]*Counter(nil), r.counters...)
		histograms := append([]*Histogram(nil), r.histograms...)
		r.mu.Unlock()
		for _, c := range counters {
			c.write(&b)
		}
		for _, h := range histograms {
			h.write(&b)
		}
		_, _ = w.Write([]byte(b.String()))
	})
}

func (c *Counter) write(b *strings.Builder) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name)
	c.mu.Lock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s%s %g\n", c.name, formatLabels(c.labelNames, splitKey(k, len(c.labelNames))), c.values[k])
	}
	c.mu.Unlock()
}

func (h *Histogram) write(b *strings.Builder) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
	h.mu.Lock()
	keys := make([]string, 0, len(h.series))
	for k := range h.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	leNames := append(append([]string(nil), h.labelNames...), "le")
	for _, k := range keys {
		s := h.series[k]
		vals := splitKey(k, len(h.labelNames))
		for i, upper := range h.buckets {
			le := append(append([]string(nil), vals...), fmt.Sprintf("%g", upper))
			fmt.Fprintf(b, "%s_bucket%s %d\n", h.name, formatLabels(leNames, le), s.counts[i])
		}
		inf := append(append([]string(nil), vals...), "+Inf")
		fmt.Fprintf(b, "%s_bucket%s %d\n", h.name, formatLabels(leNames, inf), s.count)
		fmt.Fprintf(b, "%s_sum%s %g\n", h.name, formatLabels(h.labelNames, vals), s.sum)
		fmt.Fprintf(b, "%s_count%s %d\n", h.name, formatLabels(h.labelNames, vals), s.count)
	}
	h.mu.Unlock()
}

func splitKey(key string, n int) []string {
	if n == 0 {
		return nil
	}
	return strings.Split(key, "\x00")
}

func formatLabels(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(names))
	for i, name := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		pairs = append(pairs, fmt.Sprintf("%s=%q", name, v))
	}
	return "{" + strings.Join(pairs, ",") + "}"
}
