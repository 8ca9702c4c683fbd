package migrate

import (
	"encoding/json"
	"sync"
	"time"
)

// Metrics captures timing and outcome counters for a migration run.
// Aggregated only; nothing is kept per revision.
type Metrics struct {
	mu sync.Mutex

	Revisions int
	Final     int
	Committed int
	Skipped   int // dry run
	Failed    int
	Fallbacks int

	Read    time.Duration // store queries plus conversion
	Write   time.Duration
	Commit  time.Duration
	Compact time.Duration
	Overall time.Duration
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RevisionEvent captures one revision's trip through the pipeline.
type RevisionEvent struct {
	Read   time.Duration
	Write  time.Duration
	Commit time.Duration

	Final    bool
	Fallback bool
	Outcome  string // "ok" | "skipped" | "error"
}

// RecordRevision folds ev into the totals.
func (m *Metrics) RecordRevision(ev RevisionEvent) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Revisions++
	if ev.Final {
		m.Final++
	}
	if ev.Fallback {
		m.Fallbacks++
	}
	switch ev.Outcome {
	case "ok":
		m.Committed++
	case "skipped":
		m.Skipped++
	default:
		m.Failed++
	}

	m.Read += ev.Read
	m.Write += ev.Write
	m.Commit += ev.Commit
}

// RecordCompact stores the duration of the final housekeeping step.
func (m *Metrics) RecordCompact(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Compact = d
}

// Finish stores the wall-clock duration of the whole run.
func (m *Metrics) Finish(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Overall = d
}

// Snapshot returns a JSON-serializable snapshot of current metrics
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	div := func(d time.Duration, n int) float64 {
		if n <= 0 {
			return 0
		}
		return float64(d.Microseconds()) / 1000 / float64(n)
	}

	return map[string]any{
		"revisions": m.Revisions,
		"final":     m.Final,
		"committed": m.Committed,
		"skipped":   m.Skipped,
		"failed":    m.Failed,
		"fallbacks": m.Fallbacks,
		"avg_ms": map[string]any{
			"read":   div(m.Read, m.Revisions),
			"write":  div(m.Write, m.Committed+m.Failed),
			"commit": div(m.Commit, m.Committed+m.Failed),
		},
		"compact_ms": m.Compact.Milliseconds(),
		"overall_ms": m.Overall.Milliseconds(),
	}
}

// SnapshotJSON returns a JSON representation of the metrics
func (m *Metrics) SnapshotJSON() json.RawMessage {
	if m == nil {
		return json.RawMessage("null")
	}
	b, _ := json.Marshal(m.Snapshot())
	return b
}
