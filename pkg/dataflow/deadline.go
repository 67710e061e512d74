package dataflow

import "time"

// LocalDeadlineMiss is constructed by the firing engine when a single run
// invocation takes longer than the operator's configured local deadline.
type LocalDeadlineMiss struct {
	Start      Timestamp
	End        Timestamp
	Configured time.Duration
	Observed   time.Duration
}
