package metrics

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// HealthStatus is the aggregated result of all health checks.
type HealthStatus struct {
	Healthy   bool             `json:"healthy"`
	Ready     bool             `json:"ready"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Uptime    time.Duration    `json:"uptime"`
}

// Check is the result of one named health check.
type Check struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency,omitempty"`
}

// HealthCheckFunc performs a health check.
type HealthCheckFunc func(ctx context.Context) Check

// HealthChecker runs named checks and caches the aggregate status.
type HealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]HealthCheckFunc
	status    atomic.Pointer[HealthStatus]
	ready     atomic.Bool
	metrics   *Metrics
	startTime time.Time
	interval  time.Duration
	t         *ticker

	maxHeapBytes uint64
	maxSessions  int64
}

// HealthCheckerOption configures a HealthChecker.
type HealthCheckerOption func(*HealthChecker)

// WithMaxHeapBytes sets the heap threshold above which the service is
// unhealthy.
func WithMaxHeapBytes(n uint64) HealthCheckerOption {
	return func(h *HealthChecker) {
		h.maxHeapBytes = n
	}
}

// WithMaxSessions sets the session count above which the service is
// unhealthy. Zero disables the check.
func WithMaxSessions(n int64) HealthCheckerOption {
	return func(h *HealthChecker) {
		h.maxSessions = n
	}
}

// WithHealthCheckInterval sets the interval between periodic checks.
func WithHealthCheckInterval(d time.Duration) HealthCheckerOption {
	return func(h *HealthChecker) {
		h.interval = d
	}
}

// NewHealthChecker creates a health checker with the heap and session checks
// registered.
func NewHealthChecker(m *Metrics, opts ...HealthCheckerOption) *HealthChecker {
	h := &HealthChecker{
		checks:       make(map[string]HealthCheckFunc),
		metrics:      m,
		startTime:    time.Now(),
		interval:     10 * time.Second,
		maxHeapBytes: 4 << 30,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.status.Store(&HealthStatus{Healthy: true, Timestamp: h.startTime})
	h.t = newTicker(h.interval, func() { h.Check(context.Background()) })

	h.RegisterCheck("heap", h.checkHeap)
	h.RegisterCheck("sessions", h.checkSessions)
	return h
}

// RegisterCheck registers a named check, replacing any with the same name.
func (h *HealthChecker) RegisterCheck(name string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// UnregisterCheck removes a named check.
func (h *HealthChecker) UnregisterCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// IsHealthy reports the result of the last Check.
func (h *HealthChecker) IsHealthy() bool {
	return h.status.Load().Healthy
}

// IsReady reports whether the service has been marked ready and the last
// Check passed.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load() && h.IsHealthy()
}

// SetReady marks the service ready or not ready.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// GetStatus returns the last aggregated status.
func (h *HealthChecker) GetStatus() *HealthStatus {
	st := *h.status.Load()
	st.Ready = st.Healthy && h.ready.Load()
	return &st
}

// Check runs every registered check and stores the aggregate.
func (h *HealthChecker) Check(ctx context.Context) *HealthStatus {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheckFunc, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()
	sort.Strings(names)

	status := &HealthStatus{
		Healthy:   true,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    time.Since(h.startTime),
	}

	failed := 0
	for _, name := range names {
		start := time.Now()
		result := checks[name](ctx)
		result.Name = name
		if result.Latency == 0 {
			result.Latency = time.Since(start)
		}
		status.Checks[name] = result

		if !result.Healthy {
			status.Healthy = false
			failed++
			if failed == 1 {
				status.Message = result.Message
			}
		}
	}
	if failed > 1 {
		status.Message += " (and more)"
	}

	status.Ready = status.Healthy && h.ready.Load()
	h.status.Store(status)
	return status
}

func (h *HealthChecker) checkHeap(ctx context.Context) Check {
	if h.metrics == nil || h.maxHeapBytes == 0 {
		return Check{Healthy: true}
	}

	heap := uint64(h.metrics.HeapBytes.Value())
	if heap > h.maxHeapBytes {
		return Check{Healthy: false, Message: "heap usage exceeds threshold"}
	}
	if heap > h.maxHeapBytes/10*8 {
		return Check{Healthy: true, Message: "heap usage above 80%"}
	}
	return Check{Healthy: true}
}

func (h *HealthChecker) checkSessions(ctx context.Context) Check {
	if h.metrics == nil || h.maxSessions <= 0 {
		return Check{Healthy: true}
	}

	if h.metrics.ActiveSessions.Value() > h.maxSessions {
		return Check{Healthy: false, Message: "too many open sessions"}
	}
	return Check{Healthy: true}
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping() error
}

// RegisterStoreCheck registers a check that pings the result store.
func (h *HealthChecker) RegisterStoreCheck(p Pinger) {
	h.RegisterCheck("store", func(ctx context.Context) Check {
		if p == nil {
			return Check{Healthy: false, Message: "no store configured"}
		}
		if err := p.Ping(); err != nil {
			return Check{Healthy: false, Message: "store unavailable: " + err.Error()}
		}
		return Check{Healthy: true}
	})
}

// Start runs checks periodically until ctx is done or Stop is called.
func (h *HealthChecker) Start(ctx context.Context) { h.t.start(ctx) }

// Stop stops periodic checks.
func (h *HealthChecker) Stop() { h.t.stop() }
