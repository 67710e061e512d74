package engine

import "sync/atomic"

// Metrics holds a runner's lifetime counters. Grounded on the teacher's
// internal/pipeline.Metrics: one atomic counter per observable event,
// cheap to read concurrently with the firing loop that updates them.
type Metrics struct {
	Fired          atomic.Uint64
	Dropped        atomic.Uint64
	Kept           atomic.Uint64
	DeadlineMisses atomic.Uint64
	Faults         atomic.Uint64
	Dispatched     atomic.Uint64
}

// Snapshot is a point-in-time copy of Metrics safe to hand to callers
// outside the firing loop.
type Snapshot struct {
	Fired          uint64
	Dropped        uint64
	Kept           uint64
	DeadlineMisses uint64
	Faults         uint64
	Dispatched     uint64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Fired:          m.Fired.Load(),
		Dropped:        m.Dropped.Load(),
		Kept:           m.Kept.Load(),
		DeadlineMisses: m.DeadlineMisses.Load(),
		Faults:         m.Faults.Load(),
		Dispatched:     m.Dispatched.Load(),
	}
}
