// Package meter implements C1, the bandwidth meter: a rolling window sum of
// bytes forwarded, exposing a KB/s rate. It is advisory telemetry only —
// nothing about forwarding correctness depends on it (spec.md §4.5).
//
// Grounded directly on the original DataUsageMonitor (original_source's
// data_usage.py): a deque of (timestamp, byteCount) samples plus a running
// sum, with stale samples evicted from the head on every record(). The
// deque here is github.com/gammazero/deque instead of Python's
// collections.deque, pulled from the same pack that supplies it to
// TortleWortle-gate.
package meter

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

type sample struct {
	at    time.Time
	bytes int64
}

// Meter is a BandwidthWindow (spec.md §3): safe for concurrent Record/Rate
// callers, guarded by a single mutex (no lock is ever held across I/O).
type Meter struct {
	mu       sync.Mutex
	window   time.Duration
	samples  deque.Deque[sample]
	inWindow int64
}

// New creates a Meter with the given horizon in seconds (bandwidthWindow).
func New(windowSeconds int) *Meter {
	if windowSeconds <= 0 {
		windowSeconds = 3
	}
	return &Meter{window: time.Duration(windowSeconds) * time.Second}
}

// Record appends a new sample and evicts anything older than the window.
func (m *Meter) Record(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.samples.PushBack(sample{at: now, bytes: int64(n)})
	m.inWindow += int64(n)
	m.evict(now)
}

// evict drops head samples older than the window. Caller holds m.mu.
func (m *Meter) evict(now time.Time) {
	for m.samples.Len() > 0 {
		head := m.samples.Front()
		if now.Sub(head.at) <= m.window {
			break
		}
		m.samples.PopFront()
		m.inWindow -= head.bytes
	}
	if m.samples.Len() == 0 {
		m.inWindow = 0
	}
}

// RateKBs returns the current window's bytes/s expressed in KB/s.
func (m *Meter) RateKBs() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evict(time.Now())
	if m.window <= 0 {
		return 0
	}
	return float64(m.inWindow) / m.window.Seconds() / 1024
}

// BytesInWindow exposes the raw running sum, mostly for tests asserting the
// eviction invariant (bytesInWindow == Σ byteCount of samples aged ≤ window).
func (m *Meter) BytesInWindow() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evict(time.Now())
	return m.inWindow
}
