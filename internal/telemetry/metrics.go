// Package telemetry collects build and query metrics. All data stays
// local: aggregates live in memory and flush to a SQLite file next to
// the index. Nothing is ever reported externally.
package telemetry

import (
	"sync"
	"time"
)

// LatencyBucket is a query latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent records a single retrieval query.
type QueryEvent struct {
	Query       string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether the query returned nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// BuildEvent records a completed index build.
type BuildEvent struct {
	SourceCount  int
	ChunkCount   int
	WarningCount int
	Duration     time.Duration
	Timestamp    time.Time
}

// Snapshot is an immutable view of collected metrics.
type Snapshot struct {
	QueryCount          int64                   `json:"query_count"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	BuildCount          int64                   `json:"build_count"`
	LastBuildChunks     int                     `json:"last_build_chunks"`
	LastBuildDuration   time.Duration           `json:"last_build_duration"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries with no results.
func (s Snapshot) ZeroResultPercentage() float64 {
	if s.QueryCount == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.QueryCount) * 100
}

// Store persists metric aggregates.
type Store interface {
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error
	AddZeroResultQuery(query string, timestamp time.Time) error
	SaveBuildEvent(event BuildEvent) error
	Close() error
}

const zeroResultCapacity = 100

// Metrics is a thread-safe in-memory collector. A nil *Metrics is a
// valid no-op collector, so call sites never branch on telemetry being
// enabled. With a non-nil store, aggregates flush on Flush and Close.
type Metrics struct {
	mu sync.Mutex

	queryCount      int64
	zeroResultCount int64
	zeroResults     []string
	latencies       map[LatencyBucket]int64
	pendingZero     []QueryEvent

	buildCount        int64
	lastBuildChunks   int
	lastBuildDuration time.Duration

	startTime time.Time
	store     Store
}

// NewMetrics creates a collector. store may be nil for in-memory only.
func NewMetrics(store Store) *Metrics {
	return &Metrics{
		latencies: make(map[LatencyBucket]int64),
		startTime: time.Now(),
		store:     store,
	}
}

// RecordQuery captures one query event.
func (m *Metrics) RecordQuery(event QueryEvent) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCount++
	m.latencies[LatencyToBucket(event.Latency)]++

	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults = append(m.zeroResults, event.Query)
		if len(m.zeroResults) > zeroResultCapacity {
			m.zeroResults = m.zeroResults[len(m.zeroResults)-zeroResultCapacity:]
		}
		m.pendingZero = append(m.pendingZero, event)
	}
}

// RecordBuild captures one completed build.
func (m *Metrics) RecordBuild(event BuildEvent) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.buildCount++
	m.lastBuildChunks = event.ChunkCount
	m.lastBuildDuration = event.Duration
	store := m.store
	m.mu.Unlock()

	if store != nil {
		_ = store.SaveBuildEvent(event)
	}
}

// Snapshot returns a copy of the current aggregates.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for b, c := range m.latencies {
		latencies[b] = c
	}
	zero := make([]string, len(m.zeroResults))
	copy(zero, m.zeroResults)

	return Snapshot{
		QueryCount:          m.queryCount,
		ZeroResultCount:     m.zeroResultCount,
		ZeroResultQueries:   zero,
		LatencyDistribution: latencies,
		BuildCount:          m.buildCount,
		LastBuildChunks:     m.lastBuildChunks,
		LastBuildDuration:   m.lastBuildDuration,
		Since:               m.startTime,
	}
}

// Flush writes pending aggregates to the store. Flushing resets the
// pending sets but not the in-memory totals.
func (m *Metrics) Flush() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	store := m.store
	if store == nil {
		m.mu.Unlock()
		return nil
	}

	latencies := m.latencies
	m.latencies = make(map[LatencyBucket]int64)
	pending := m.pendingZero
	m.pendingZero = nil
	m.mu.Unlock()

	date := time.Now().UTC().Format("2006-01-02")
	if len(latencies) > 0 {
		if err := store.SaveLatencyCounts(date, latencies); err != nil {
			return err
		}
	}
	for _, event := range pending {
		if err := store.AddZeroResultQuery(event.Query, event.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all in-memory aggregates.
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCount = 0
	m.zeroResultCount = 0
	m.zeroResults = nil
	m.pendingZero = nil
	m.latencies = make(map[LatencyBucket]int64)
	m.buildCount = 0
	m.lastBuildChunks = 0
	m.lastBuildDuration = 0
	m.startTime = time.Now()
}

// Close flushes and closes the store.
func (m *Metrics) Close() error {
	if m == nil {
		return nil
	}
	if err := m.Flush(); err != nil {
		return err
	}
	m.mu.Lock()
	store := m.store
	m.store = nil
	m.mu.Unlock()

	if store != nil {
		return store.Close()
	}
	return nil
}
