package dataflow

import (
	"fmt"
	"time"
)

// Timestamp is a hybrid logical clock reading attached to every Message.
// The wall-clock component gives human-readable ordering; the logical
// counter breaks ties and advances on every observed event so timestamps
// retain a total causal order even when two events land in the same
// wall-clock instant.
type Timestamp struct {
	Wall    time.Time
	Logical uint64
}

// Before reports whether t happened strictly before o in the clock's total
// order.
func (t Timestamp) Before(o Timestamp) bool {
	if !t.Wall.Equal(o.Wall) {
		return t.Wall.Before(o.Wall)
	}
	return t.Logical < o.Logical
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%s/%d", t.Wall.Format(time.RFC3339Nano), t.Logical)
}
