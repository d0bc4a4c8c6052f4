// Package metrics provides Prometheus-compatible metrics for vboardd.
//
// Counters, gauges and histograms live in a Registry that renders them in
// the Prometheus text format or as JSON. All instruments are safe for
// concurrent use.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MetricType represents the type of metric.
type MetricType int

const (
	// TypeCounter is a monotonically increasing counter.
	TypeCounter MetricType = iota
	// TypeGauge is a value that can go up and down.
	TypeGauge
	// TypeHistogram is a distribution of values.
	TypeHistogram
)

// String returns the string representation of the metric type.
func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	case TypeHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Labels represents metric labels.
type Labels map[string]string

// String renders labels as {k="v",...} with sorted keys.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	return "{" + l.pairs() + "}"
}

func (l Labels) pairs() string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(l))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s=%q`, k, l[k]))
	}
	return strings.Join(parts, ",")
}

// with returns a copy of l with one more label.
func (l Labels) with(k, v string) Labels {
	out := make(Labels, len(l)+1)
	for lk, lv := range l {
		out[lk] = lv
	}
	out[k] = v
	return out
}

// Metric is implemented by every instrument.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Labels() Labels
}

type meta struct {
	name   string
	help   string
	labels Labels
}

func (m meta) Name() string   { return m.name }
func (m meta) Help() string   { return m.help }
func (m meta) Labels() Labels { return m.labels }

// Counter is a monotonically increasing counter.
type Counter struct {
	meta
	value atomic.Uint64
}

// NewCounter creates a new Counter.
func NewCounter(name, help string, labels Labels) *Counter {
	return &Counter{meta: meta{name: name, help: help, labels: labels}}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds the given value to the counter.
func (c *Counter) Add(v uint64) {
	c.value.Add(v)
}

// Value returns the current value.
func (c *Counter) Value() uint64 {
	return c.value.Load()
}

// Type returns the metric type.
func (c *Counter) Type() MetricType {
	return TypeCounter
}

// Gauge is a value that can go up and down.
type Gauge struct {
	meta
	value atomic.Int64
}

// NewGauge creates a new Gauge.
func NewGauge(name, help string, labels Labels) *Gauge {
	return &Gauge{meta: meta{name: name, help: help, labels: labels}}
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(v int64) {
	g.value.Store(v)
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.value.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.value.Add(-1)
}

// Value returns the current value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

// Type returns the metric type.
func (g *Gauge) Type() MetricType {
	return TypeGauge
}

// Histogram tracks the distribution of values.
type Histogram struct {
	meta
	buckets []float64

	mu     sync.Mutex
	counts []uint64 // per bucket, last is +Inf
	sum    float64
	count  uint64
}

// LatencyBuckets are buckets in seconds for sub-second call latencies.
var LatencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1,
}

// NewHistogram creates a new Histogram. Nil buckets means LatencyBuckets.
func NewHistogram(name, help string, labels Labels, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = LatencyBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)

	return &Histogram{
		meta:    meta{name: name, help: help, labels: labels},
		buckets: sorted,
		counts:  make([]uint64, len(sorted)+1),
	}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++
	h.counts[sort.SearchFloat64s(h.buckets, v)]++
}

// ObserveDuration records a duration in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// Type returns the metric type.
func (h *Histogram) Type() MetricType {
	return TypeHistogram
}

// Count returns the count of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Sum returns the sum of observed values.
func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// cumulative returns the cumulative bucket counts, +Inf last.
func (h *Histogram) cumulative() ([]uint64, float64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]uint64, len(h.counts))
	var total uint64
	for i, c := range h.counts {
		total += c
		out[i] = total
	}
	return out, h.sum, h.count
}

// Registry holds all registered metrics.
type Registry struct {
	mu        sync.RWMutex
	metrics   map[string]Metric
	namespace string
}

// NewRegistry creates a new Registry. Metric names get the namespace as a
// prefix.
func NewRegistry(namespace string) *Registry {
	return &Registry{
		metrics:   make(map[string]Metric),
		namespace: namespace,
	}
}

func (r *Registry) fullName(name string) string {
	if r.namespace == "" {
		return name
	}
	return r.namespace + "_" + name
}

func (r *Registry) register(name string, labels Labels, create func(fullName string) Metric) Metric {
	fullName := r.fullName(name)
	id := fullName + labels.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.metrics[id]; ok {
		return m
	}
	m := create(fullName)
	r.metrics[id] = m
	return m
}

// Counter returns the counter registered under name and labels, creating it
// on first use.
func (r *Registry) Counter(name, help string, labels Labels) *Counter {
	return r.register(name, labels, func(full string) Metric {
		return NewCounter(full, help, labels)
	}).(*Counter)
}

// Gauge returns the gauge registered under name and labels, creating it on
// first use.
func (r *Registry) Gauge(name, help string, labels Labels) *Gauge {
	return r.register(name, labels, func(full string) Metric {
		return NewGauge(full, help, labels)
	}).(*Gauge)
}

// Histogram returns the histogram registered under name and labels,
// creating it on first use.
func (r *Registry) Histogram(name, help string, labels Labels, buckets []float64) *Histogram {
	return r.register(name, labels, func(full string) Metric {
		return NewHistogram(full, help, labels, buckets)
	}).(*Histogram)
}

// sorted returns the metrics ordered by name, then labels.
func (r *Registry) sorted() []Metric {
	r.mu.RLock()
	out := make([]Metric, 0, len(r.metrics))
	for _, m := range r.metrics {
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].Labels().String() < out[j].Labels().String()
	})
	return out
}

// WritePrometheus writes metrics in Prometheus text format.
func (r *Registry) WritePrometheus(w io.Writer) error {
	var b strings.Builder
	last := ""
	for _, m := range r.sorted() {
		if m.Name() != last {
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name(), m.Help())
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name(), m.Type())
			last = m.Name()
		}

		switch m := m.(type) {
		case *Counter:
			fmt.Fprintf(&b, "%s%s %d\n", m.name, m.labels, m.Value())
		case *Gauge:
			fmt.Fprintf(&b, "%s%s %d\n", m.name, m.labels, m.Value())
		case *Histogram:
			counts, sum, count := m.cumulative()
			for i, bound := range m.buckets {
				le := m.labels.with("le", strconv.FormatFloat(bound, 'g', -1, 64))
				fmt.Fprintf(&b, "%s_bucket%s %d\n", m.name, le, counts[i])
			}
			fmt.Fprintf(&b, "%s_bucket%s %d\n", m.name, m.labels.with("le", "+Inf"), counts[len(counts)-1])
			fmt.Fprintf(&b, "%s_sum%s %g\n", m.name, m.labels, sum)
			fmt.Fprintf(&b, "%s_count%s %d\n", m.name, m.labels, count)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Sample is the JSON form of one metric.
type Sample struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Labels Labels  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
	Count  uint64  `json:"count,omitempty"`
}

// Snapshot returns the current value of every metric. Histograms report
// their sum as Value.
func (r *Registry) Snapshot() []Sample {
	metrics := r.sorted()
	out := make([]Sample, 0, len(metrics))
	for _, m := range metrics {
		s := Sample{Name: m.Name(), Type: m.Type().String(), Labels: m.Labels()}
		switch m := m.(type) {
		case *Counter:
			s.Value = float64(m.Value())
		case *Gauge:
			s.Value = float64(m.Value())
		case *Histogram:
			_, s.Value, s.Count = m.cumulative()
		}
		out = append(out, s)
	}
	return out
}

// WriteJSON writes metrics in JSON format.
func (r *Registry) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Snapshot())
}

// HTTPHandler returns an HTTP handler for metrics. Clients asking for
// application/json get JSON, everyone else the text format.
func (r *Registry) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.Header.Get("Accept"), "application/json") {
			w.Header().Set("Content-Type", "application/json")
			r.WriteJSON(w)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.WritePrometheus(w)
	})
}
