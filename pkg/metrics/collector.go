package metrics

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Collector periodically refreshes gauges from an external source.
type Collector interface {
	Collect()
	Start(ctx context.Context)
	Stop()
}

// ticker runs a collect function on an interval until stopped.
type ticker struct {
	interval time.Duration
	collect  func()
	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

func newTicker(interval time.Duration, collect func()) *ticker {
	return &ticker{
		interval: interval,
		collect:  collect,
		stopCh:   make(chan struct{}),
	}
}

func (t *ticker) start(ctx context.Context) {
	if t.running.Swap(true) {
		return
	}

	go func() {
		defer t.running.Store(false)

		tk := time.NewTicker(t.interval)
		defer tk.Stop()

		t.collect()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stopCh:
				return
			case <-tk.C:
				t.collect()
			}
		}
	}()
}

func (t *ticker) stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// RuntimeCollector samples Go runtime statistics.
type RuntimeCollector struct {
	metrics *Metrics
	t       *ticker

	HeapObjects *Gauge
	NumGC       *Gauge
}

// NewRuntimeCollector creates a runtime collector. A non-positive interval
// selects 15 seconds.
func NewRuntimeCollector(m *Metrics, interval time.Duration) *RuntimeCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	rc := &RuntimeCollector{
		metrics:     m,
		HeapObjects: NewGauge("intcode_runtime_heap_objects", "Number of allocated heap objects"),
		NumGC:       NewGauge("intcode_runtime_gc_cycles", "Number of completed GC cycles"),
	}
	rc.t = newTicker(interval, rc.Collect)

	if m != nil {
		m.Register(rc.HeapObjects)
		m.Register(rc.NumGC)
	}
	return rc
}

// Collect samples the runtime once.
func (rc *RuntimeCollector) Collect() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	if rc.metrics != nil {
		rc.metrics.HeapBytes.SetUint64(ms.HeapAlloc)
		rc.metrics.Goroutines.Set(int64(runtime.NumGoroutine()))
	}
	rc.HeapObjects.SetUint64(ms.HeapObjects)
	rc.NumGC.SetUint64(uint64(ms.NumGC))
}

// Start starts periodic collection.
func (rc *RuntimeCollector) Start(ctx context.Context) { rc.t.start(ctx) }

// Stop stops the collector.
func (rc *RuntimeCollector) Stop() { rc.t.stop() }

// RecordCounter reports how many records a store holds. results.Store
// satisfies it.
type RecordCounter interface {
	Count() uint64
}

// StoreCollector samples the result store.
type StoreCollector struct {
	mu      sync.RWMutex
	metrics *Metrics
	store   RecordCounter
	t       *ticker
}

// NewStoreCollector creates a store collector. A non-positive interval
// selects 30 seconds.
func NewStoreCollector(m *Metrics, store RecordCounter, interval time.Duration) *StoreCollector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	sc := &StoreCollector{metrics: m, store: store}
	sc.t = newTicker(interval, sc.Collect)
	return sc
}

// SetStore replaces the sampled store.
func (sc *StoreCollector) SetStore(store RecordCounter) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.store = store
}

// Collect samples the store once.
func (sc *StoreCollector) Collect() {
	sc.mu.RLock()
	store := sc.store
	sc.mu.RUnlock()

	if store == nil || sc.metrics == nil {
		return
	}
	sc.metrics.StoredRecords.SetUint64(store.Count())
}

// Start starts periodic collection.
func (sc *StoreCollector) Start(ctx context.Context) { sc.t.start(ctx) }

// Stop stops the collector.
func (sc *StoreCollector) Stop() { sc.t.stop() }

// CollectorManager starts and stops a group of collectors together.
type CollectorManager struct {
	mu         sync.Mutex
	collectors []Collector
	cancel     context.CancelFunc
}

// NewCollectorManager creates an empty collector manager.
func NewCollectorManager() *CollectorManager {
	return &CollectorManager{}
}

// Add adds a collector.
func (cm *CollectorManager) Add(c Collector) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.collectors = append(cm.collectors, c)
}

// Start starts all collectors.
func (cm *CollectorManager) Start() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.cancel != nil {
		return
	}
	var ctx context.Context
	ctx, cm.cancel = context.WithCancel(context.Background())
	for _, c := range cm.collectors {
		c.Start(ctx)
	}
}

// Stop stops all collectors.
func (cm *CollectorManager) Stop() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.cancel == nil {
		return
	}
	cm.cancel()
	cm.cancel = nil
	for _, c := range cm.collectors {
		c.Stop()
	}
}

// CollectAll triggers one collection on every collector.
func (cm *CollectorManager) CollectAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, c := range cm.collectors {
		c.Collect()
	}
}
