package crewauth

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricIssueSuccess is an exported counter identifier.
	MetricIssueSuccess MetricID = iota
	// MetricIssueFailure is an exported counter identifier.
	MetricIssueFailure
	// MetricRotateSuccess is an exported counter identifier.
	MetricRotateSuccess
	// MetricRotateFailure is an exported counter identifier.
	MetricRotateFailure
	// MetricRevoke is an exported counter identifier.
	MetricRevoke
	// MetricAuthSuccess is an exported counter identifier.
	MetricAuthSuccess
	// MetricAuthRejected is an exported counter identifier.
	MetricAuthRejected
	// MetricBlacklistHit is an exported counter identifier.
	MetricBlacklistHit
	// MetricCacheFallback counts refresh validations that missed the cache
	// mirror and fell back to the durable store.
	MetricCacheFallback
	// MetricCacheDegraded counts cache-tier failures absorbed by the tiered
	// store.
	MetricCacheDegraded

	// MetricIDCount is the number of defined counters.
	MetricIDCount
)

// Metrics holds lock-free counters. All methods are safe for concurrent use;
// a disabled Metrics turns every operation into a no-op.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics instance. When enabled is false all
// operations are no-ops and Snapshot returns an empty map.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Inc increments the counter identified by id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a deep copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil || !m.enabled {
		return snapshot
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snapshot.Counters[id] = m.counters[id].Load()
	}
	return snapshot
}
