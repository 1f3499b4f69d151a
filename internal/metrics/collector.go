// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Entry metrics (only for listing operations)
	TotalEntries int64
	MinEntries   int64
	MaxEntries   int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
	MinTimeMs   int64   `json:"minTimeMs"`
	MaxTimeMs   int64   `json:"maxTimeMs"`

	// Entry stats (nil if not applicable)
	TotalEntries *int64   `json:"totalEntries,omitempty"`
	AvgEntries   *float64 `json:"avgEntries,omitempty"`
	MinEntries   *int64   `json:"minEntries,omitempty"`
	MaxEntries   *int64   `json:"maxEntries,omitempty"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptimeSeconds"`
	DriveList     *OperationSnapshot `json:"driveList,omitempty"`
	Extract       *OperationSnapshot `json:"extract,omitempty"`
	DocUpsert     *OperationSnapshot `json:"docUpsert,omitempty"`
	DBQuery       *OperationSnapshot `json:"dbQuery,omitempty"`
}

// Operation names for the collector.
const (
	OpDriveList = "drive_list"
	OpExtract   = "extract"
	OpDocUpsert = "doc_upsert"
	OpDBQuery   = "db_query"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe and tolerate a nil receiver, so callers
// never need to guard the "metrics disabled" case.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:    time.Duration(math.MaxInt64),
			MinEntries: math.MaxInt64,
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordListing records timing and the number of returned entries for
// a folder-listing call.
func (c *Collector) RecordListing(duration time.Duration, entries int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(OpDriveList)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalEntries += entries
	if entries < m.MinEntries {
		m.MinEntries = entries
	}
	if entries > m.MaxEntries {
		m.MaxEntries = entries
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeEntries bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeEntries {
		total := m.TotalEntries
		avg := float64(m.TotalEntries) / float64(m.Count)
		minEntries := m.MinEntries
		maxEntries := m.MaxEntries

		// Reset sentinel values for display
		if minEntries == math.MaxInt64 {
			minEntries = 0
		}

		snap.TotalEntries = &total
		snap.AvgEntries = &avg
		snap.MinEntries = &minEntries
		snap.MaxEntries = &maxEntries
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		DriveList:     snapshotOp(c.ops[OpDriveList], true),
		Extract:       snapshotOp(c.ops[OpExtract], false),
		DocUpsert:     snapshotOp(c.ops[OpDocUpsert], false),
		DBQuery:       snapshotOp(c.ops[OpDBQuery], false),
	}
}
