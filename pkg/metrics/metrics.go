// Package metrics provides Prometheus-compatible metrics for the Intcode
// engine and the services built on it.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/partyfowl/aoc19/pkg/intcode"
)

// MetricType defines the type of a metric.
type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// Metric is the interface for all metrics.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
}

// desc holds the name and help text shared by every metric type.
type desc struct {
	name string
	help string
}

func (d desc) Name() string { return d.name }
func (d desc) Help() string { return d.help }

// Counter is a monotonically increasing value.
type Counter struct {
	desc
	value atomic.Uint64
}

// NewCounter creates a new counter metric.
func NewCounter(name, help string) *Counter {
	return &Counter{desc: desc{name, help}}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add adds delta to the counter.
func (c *Counter) Add(delta uint64) { c.value.Add(delta) }

// Value returns the current counter value.
func (c *Counter) Value() uint64 { return c.value.Load() }

// Type returns TypeCounter.
func (c *Counter) Type() MetricType { return TypeCounter }

// Gauge is a value that can go up and down.
type Gauge struct {
	desc
	value atomic.Int64
}

// NewGauge creates a new gauge metric.
func NewGauge(name, help string) *Gauge {
	return &Gauge{desc: desc{name, help}}
}

// Set sets the gauge to value.
func (g *Gauge) Set(value int64) { g.value.Store(value) }

// SetUint64 sets the gauge to an unsigned value.
func (g *Gauge) SetUint64(value uint64) { g.value.Store(int64(value)) }

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.value.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.value.Add(-1) }

// Add adds delta to the gauge.
func (g *Gauge) Add(delta int64) { g.value.Add(delta) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.value.Load() }

// Type returns TypeGauge.
func (g *Gauge) Type() MetricType { return TypeGauge }

// DefaultHistogramBuckets are the default buckets for duration histograms,
// in seconds.
var DefaultHistogramBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0,
}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	desc
	mu      sync.RWMutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// NewHistogram creates a new histogram. Buckets are sorted; nil selects
// DefaultHistogramBuckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultHistogramBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)

	return &Histogram{
		desc:    desc{name, help},
		buckets: sorted,
		counts:  make([]uint64, len(sorted)),
	}
}

// Observe records a value.
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++
	for i, upper := range h.buckets {
		if value <= upper {
			h.counts[i]++
		}
	}
}

// ObserveDuration records a duration in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// Type returns TypeHistogram.
func (h *Histogram) Type() MetricType { return TypeHistogram }

// HistogramBucket is one cumulative bucket.
type HistogramBucket struct {
	UpperBound float64
	Count      uint64
}

// HistogramSnapshot is a point-in-time copy of a histogram.
type HistogramSnapshot struct {
	Buckets []HistogramBucket
	Sum     float64
	Count   uint64
}

// Snapshot returns a copy of the histogram state. Bucket counts are
// cumulative.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap := HistogramSnapshot{
		Buckets: make([]HistogramBucket, len(h.buckets)),
		Sum:     h.sum,
		Count:   h.count,
	}
	for i, upper := range h.buckets {
		snap.Buckets[i] = HistogramBucket{UpperBound: upper, Count: h.counts[i]}
	}
	return snap
}

// Metrics holds all engine and service metrics.
type Metrics struct {
	mu      sync.RWMutex
	metrics map[string]Metric

	// Engine
	Runs         *Counter
	Instructions *Counter
	Suspensions  *Counter
	Halts        *Counter
	StepLimits   *Counter
	Faults       *Counter
	MemoryCells  *Gauge

	RunDuration *Histogram

	// Search
	Searches      *Counter
	Evaluations   *Counter
	CacheHits     *Counter
	StoredRecords *Gauge

	// Service
	ActiveSessions *Gauge
	HeapBytes      *Gauge
	Goroutines     *Gauge
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		metrics: make(map[string]Metric),

		Runs:         NewCounter("intcode_runs_total", "Total number of engine invocations"),
		Instructions: NewCounter("intcode_instructions_total", "Total number of instructions executed"),
		Suspensions:  NewCounter("intcode_suspensions_total", "Invocations that stopped waiting for input"),
		Halts:        NewCounter("intcode_halts_total", "Invocations that ended with a halt"),
		StepLimits:   NewCounter("intcode_step_limits_total", "Invocations that exhausted their step budget"),
		Faults:       NewCounter("intcode_faults_total", "Invocations that ended with an invalid opcode or fault"),
		MemoryCells:  NewGauge("intcode_memory_cells", "Memory extent of the most recently finished engine"),

		RunDuration: NewHistogram(
			"intcode_run_duration_seconds",
			"Engine invocation duration in seconds",
			DefaultHistogramBuckets,
		),

		Searches:      NewCounter("intcode_searches_total", "Total number of phase searches"),
		Evaluations:   NewCounter("intcode_search_evaluations_total", "Phase orderings evaluated"),
		CacheHits:     NewCounter("intcode_search_cache_hits_total", "Phase orderings answered from the result store"),
		StoredRecords: NewGauge("intcode_stored_records", "Records in the result store"),

		ActiveSessions: NewGauge("intcode_active_sessions", "Open RPC sessions"),
		HeapBytes:      NewGauge("intcode_heap_bytes", "Heap bytes allocated"),
		Goroutines:     NewGauge("intcode_goroutines", "Number of goroutines"),
	}

	for _, metric := range []Metric{
		m.Runs, m.Instructions, m.Suspensions, m.Halts, m.StepLimits, m.Faults,
		m.MemoryCells, m.RunDuration,
		m.Searches, m.Evaluations, m.CacheHits, m.StoredRecords,
		m.ActiveSessions, m.HeapBytes, m.Goroutines,
	} {
		m.Register(metric)
	}

	return m
}

// Register adds a metric to the registry, replacing any metric of the same
// name.
func (m *Metrics) Register(metric Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metric.Name()] = metric
}

// Get returns a metric by name.
func (m *Metrics) Get(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics[name]
}

// All returns a copy of the registry.
func (m *Metrics) All() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Metric, len(m.metrics))
	for k, v := range m.metrics {
		out[k] = v
	}
	return out
}

// Format renders all metrics in Prometheus text format, sorted by name.
func (m *Metrics) Format() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.metrics))
	for name := range m.metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		writeMetric(&sb, m.metrics[name])
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeMetric(sb *strings.Builder, metric Metric) {
	fmt.Fprintf(sb, "# HELP %s %s\n", metric.Name(), metric.Help())
	fmt.Fprintf(sb, "# TYPE %s %s\n", metric.Name(), metric.Type())

	switch v := metric.(type) {
	case *Counter:
		fmt.Fprintf(sb, "%s %d\n", v.Name(), v.Value())
	case *Gauge:
		fmt.Fprintf(sb, "%s %d\n", v.Name(), v.Value())
	case *Histogram:
		snap := v.Snapshot()
		for _, b := range snap.Buckets {
			fmt.Fprintf(sb, "%s_bucket{le=\"%g\"} %d\n", v.Name(), b.UpperBound, b.Count)
		}
		fmt.Fprintf(sb, "%s_bucket{le=\"+Inf\"} %d\n", v.Name(), snap.Count)
		fmt.Fprintf(sb, "%s_sum %.6f\n", v.Name(), snap.Sum)
		fmt.Fprintf(sb, "%s_count %d\n", v.Name(), snap.Count)
	}
}

// RecordResult records one engine invocation.
func (m *Metrics) RecordResult(res intcode.Result, elapsed time.Duration) {
	m.Runs.Inc()
	m.Instructions.Add(res.Steps)
	m.RunDuration.ObserveDuration(elapsed)

	switch {
	case res.Status == intcode.StatusNeedsInput:
		m.Suspensions.Inc()
	case res.Status == intcode.StatusHalted:
		m.Halts.Inc()
	case res.Status == intcode.StatusStepLimit:
		m.StepLimits.Inc()
	case res.Status.Failed():
		m.Faults.Inc()
	}
}

// ObserveStage records a network stage invocation. Its signature matches
// pipeline.Observer.
func (m *Metrics) ObserveStage(_ int, res intcode.Result, elapsed time.Duration) {
	m.RecordResult(res, elapsed)
}

// RecordVM records the memory extent of a finished engine.
func (m *Metrics) RecordVM(vm *intcode.VM) {
	m.MemoryCells.Set(vm.Memory().Len())
}

// RecordSearch records a completed phase search.
func (m *Metrics) RecordSearch(evaluated, cacheHits int) {
	m.Searches.Inc()
	m.Evaluations.Add(uint64(evaluated))
	m.CacheHits.Add(uint64(cacheHits))
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide metrics instance.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}
