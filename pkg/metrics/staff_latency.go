// Package metrics tracks per-route request latency with percentile summaries.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// Route Tracker
// =============================================================================

// routeTracker keeps a ring buffer of recent latencies for one route.
type routeTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
	total   int64
	errors  int64
}

func newRouteTracker(window int) *routeTracker {
	return &routeTracker{samples: make([]time.Duration, window)}
}

func (t *routeTracker) record(d time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples[t.next] = d
	t.next = (t.next + 1) % len(t.samples)
	if t.next == 0 {
		t.full = true
	}
	t.total++
	if failed {
		t.errors++
	}
}

func (t *routeTracker) summary() Summary {
	t.mu.Lock()
	n := t.next
	if t.full {
		n = len(t.samples)
	}
	window := make([]time.Duration, n)
	copy(window, t.samples[:n])
	s := Summary{Requests: t.total, Errors: t.errors, Samples: n}
	t.mu.Unlock()

	if n == 0 {
		return s
	}

	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })

	var sum time.Duration
	for _, d := range window {
		sum += d
	}
	s.AvgMs = ms(sum / time.Duration(n))
	s.MaxMs = ms(window[n-1])
	s.P50Ms = ms(percentile(window, 0.50))
	s.P95Ms = ms(percentile(window, 0.95))
	s.P99Ms = ms(percentile(window, 0.99))
	return s
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Summary is the snapshot reported for a route.
type Summary struct {
	Requests int64   `json:"requests"`
	Errors   int64   `json:"errors"`
	Samples  int     `json:"samples"`
	AvgMs    float64 `json:"avg_ms"`
	MaxMs    float64 `json:"max_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// =============================================================================
// Registry
// =============================================================================

// Registry manages trackers keyed by route (e.g. "GET /api/v1/employees/:id").
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]*routeTracker
	window   int
}

// NewRegistry creates a registry that keeps window samples per route.
func NewRegistry(window int) *Registry {
	if window <= 0 {
		window = 1000
	}
	return &Registry{
		trackers: make(map[string]*routeTracker),
		window:   window,
	}
}

// Record records a request for route. failed marks 5xx responses.
func (r *Registry) Record(route string, d time.Duration, failed bool) {
	r.mu.RLock()
	tracker, ok := r.trackers[route]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if tracker, ok = r.trackers[route]; !ok {
			tracker = newRouteTracker(r.window)
			r.trackers[route] = tracker
		}
		r.mu.Unlock()
	}

	tracker.record(d, failed)
}

// Snapshot returns a summary for every route seen so far.
func (r *Registry) Snapshot() map[string]Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Summary, len(r.trackers))
	for route, tracker := range r.trackers {
		result[route] = tracker.summary()
	}
	return result
}
