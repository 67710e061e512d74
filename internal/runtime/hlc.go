// Package runtime implements the per-process execution context shared
// read-only by every runner: the hybrid logical clock, runtime identity,
// and (optionally) a node factory registry handle.
package runtime

import (
	"sync"
	"time"

	"firestige.xyz/otusflow/pkg/dataflow"
)

// HLC is a monotonic, causally-meaningful clock. A single HLC is shared
// (read-only from the node's perspective) across every runner in a runtime
// process via Context. There is no teacher equivalent for this type (the
// packet-capture lineage has no logical clock); the shape follows
// original_source's use of uhlc.HLC in
// zenoh-flow/tests/{input_rule_drop,local_deadline}.rs, reimplemented as a
// mutex-guarded Go value instead of a borrowed Rust struct.
type HLC struct {
	mu   sync.Mutex
	last dataflow.Timestamp
}

// NewHLC creates a clock initialized to the current wall time.
func NewHLC() *HLC {
	return &HLC{last: dataflow.Timestamp{Wall: time.Now()}}
}

// Now produces the next timestamp in the clock's order: wall-clock time
// advances monotonically except when two calls land in the same instant,
// in which case the logical counter breaks the tie.
func (c *HLC) Now() dataflow.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.After(c.last.Wall) {
		c.last = dataflow.Timestamp{Wall: now, Logical: 0}
	} else {
		c.last.Logical++
	}
	return c.last
}

// Observe folds an externally-received timestamp into the clock, advancing
// it past remote so that causally-dependent local events sort after
// whatever produced remote.
func (c *HLC) Observe(remote dataflow.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	switch {
	case remote.Wall.After(now) && remote.Wall.After(c.last.Wall):
		c.last = dataflow.Timestamp{Wall: remote.Wall, Logical: remote.Logical + 1}
	case remote.Wall.Equal(c.last.Wall):
		if remote.Logical >= c.last.Logical {
			c.last.Logical = remote.Logical + 1
		}
	case now.After(c.last.Wall):
		c.last = dataflow.Timestamp{Wall: now, Logical: 0}
	default:
		c.last.Logical++
	}
}
