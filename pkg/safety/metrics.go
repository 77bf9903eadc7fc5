package safety

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// defaultSampleCapacity is the size of the latency ring buffer.
const defaultSampleCapacity = 1024

// PerfSnapshot is a point-in-time view of the rolling performance metrics.
type PerfSnapshot struct {
	Requests    int64
	Successes   int64
	Failures    int64
	CacheHits   int64
	CacheMisses int64

	// Percentiles over the most recent latency samples. Zero when no
	// samples have been recorded.
	P50 time.Duration
	P95 time.Duration
	P99 time.Duration

	// Samples is how many latency samples the percentiles were computed
	// over (at most the ring capacity).
	Samples int
}

// PerfTracker keeps running totals plus a fixed-capacity ring buffer of
// recent latencies for on-demand percentile computation.
//
// Counters are atomic; only the ring buffer takes a lock, and only
// briefly.
type PerfTracker struct {
	requests    atomic.Int64
	successes   atomic.Int64
	failures    atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	mu      sync.Mutex
	samples []time.Duration
	next    int
	filled  bool
}

// NewPerfTracker creates a tracker with the given latency sample capacity.
// A non-positive capacity uses the default of 1024 samples.
func NewPerfTracker(capacity int) *PerfTracker {
	if capacity <= 0 {
		capacity = defaultSampleCapacity
	}
	return &PerfTracker{samples: make([]time.Duration, capacity)}
}

// Record counts one request and stores its latency in the ring.
func (t *PerfTracker) Record(latency time.Duration, success bool) {
	t.requests.Add(1)
	if success {
		t.successes.Add(1)
	} else {
		t.failures.Add(1)
	}

	t.mu.Lock()
	t.samples[t.next] = latency
	t.next++
	if t.next == len(t.samples) {
		t.next = 0
		t.filled = true
	}
	t.mu.Unlock()
}

// RecordCacheHit counts a cache hit.
func (t *PerfTracker) RecordCacheHit() { t.cacheHits.Add(1) }

// RecordCacheMiss counts a cache miss.
func (t *PerfTracker) RecordCacheMiss() { t.cacheMisses.Add(1) }

// Snapshot computes totals and latency percentiles on demand.
func (t *PerfTracker) Snapshot() PerfSnapshot {
	snap := PerfSnapshot{
		Requests:    t.requests.Load(),
		Successes:   t.successes.Load(),
		Failures:    t.failures.Load(),
		CacheHits:   t.cacheHits.Load(),
		CacheMisses: t.cacheMisses.Load(),
	}

	t.mu.Lock()
	n := t.next
	if t.filled {
		n = len(t.samples)
	}
	sorted := make([]time.Duration, n)
	copy(sorted, t.samples[:n])
	t.mu.Unlock()

	if n == 0 {
		return snap
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	snap.Samples = n
	snap.P50 = percentile(sorted, 50)
	snap.P95 = percentile(sorted, 95)
	snap.P99 = percentile(sorted, 99)
	return snap
}

// percentile picks the nearest-rank percentile from a sorted sample set.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100 // ceil
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
