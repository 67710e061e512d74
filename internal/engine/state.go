// Package engine implements the per-node firing loops driven by the
// dataflow instance: the operator runner's WaitTokens -> Evaluate -> Gather
// -> Run -> OutputRule -> Dispatch -> Commit cycle (spec §4.3), and the
// simpler source and sink loops (spec §4.4, §4.5).
//
// Grounded on the teacher's internal/pipeline.Pipeline: a context+cancel
// pair and a loop goroutine per long-running unit, atomic counters for
// metrics, and the same "log but keep running" fault policy — generalized
// from a fixed five-stage packet pipeline to the spec's token-driven
// firing discipline.
package engine

import "sync/atomic"

// NodeState mirrors the lifecycle states a runner moves through; exported
// so internal/instance can report node status without reaching into
// runner internals.
type NodeState int32

const (
	StateCreated NodeState = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateFaulted
	StateKilled
)

func (s NodeState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFaulted:
		return "faulted"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// atomicState is embedded by every runner kind for consistent state
// reporting.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) set(s NodeState) { a.v.Store(int32(s)) }
func (a *atomicState) get() NodeState  { return NodeState(a.v.Load()) }

// State returns the runner's current lifecycle state; exported so
// Instance.NodeState can report it without reaching into runner
// internals.
func (a *atomicState) State() NodeState { return a.get() }
