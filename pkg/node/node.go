// Package node defines the callback surface user code implements to
// participate in a dataflow: the lifecycle hooks shared by every node kind,
// and the three firing-loop shapes (Source, Operator, Sink).
//
// The three node kinds differ in their firing loop, not in a type
// hierarchy: there is no base "Node" struct to embed, only the Lifecycle
// capability set every kind must also satisfy.
package node

import (
	"firestige.xyz/otusflow/internal/runtime"
	"firestige.xyz/otusflow/pkg/dataflow"
)

// Config is the immutable key/value map supplied to a node at
// instantiation time; read-only for the node.
type Config map[string]any

// State is the per-node opaque mutable value returned by Initialize and
// threaded by pointer into every later callback. Its lifetime is the
// node's lifetime; it is owned exclusively by that node's runner — no two
// callbacks on the same node ever run concurrently, so State needs no
// internal synchronization of its own.
type State any

// Lifecycle is the capability set every node kind must satisfy.
type Lifecycle interface {
	// Initialize constructs the node's State from its configuration. It
	// runs once, before the first firing/run/capture call.
	Initialize(cfg Config) (State, error)

	// Finalize releases resources held in state. It runs exactly once,
	// after the runner has observed cancellation and drained in-flight
	// work — never for a killed node.
	Finalize(state State) error
}

// Source produces one output message per call. The runner fans that
// message out to every downstream link on the node's sole output port.
type Source interface {
	Lifecycle
	Run(ctx *runtime.Context, state State) (dataflow.Payload, error)
}

// WatermarkSource is an optional capability a Source may additionally
// implement to interleave watermark advances with its data messages (spec
// §4.4: "A source may publish watermarks; implementations are free to
// interleave"). The source runner checks for this via a type assertion
// after every Run call; a false second return skips emission that cycle.
type WatermarkSource interface {
	Source
	Watermark(ctx *runtime.Context, state State) (dataflow.Timestamp, bool)
}

// Sink consumes one inbound Data message per call. Watermark and Control
// messages are handled by the sink runner itself, not forwarded here.
type Sink interface {
	Lifecycle
	Run(ctx *runtime.Context, state State, msg dataflow.Message) error
}

// Operator is the three-callback compute step driven by the firing engine
// (spec §4.3).
type Operator interface {
	Lifecycle

	// InputRule decides whether the operator should fire given the
	// current token map (one entry per declared input port). It may
	// mutate each token's Action; returning true proceeds to Gather/Run,
	// false applies the mutated actions and returns to waiting.
	InputRule(ctx *runtime.Context, state State, tokens map[dataflow.PortId]*dataflow.Token) (bool, error)

	// Run is the compute step. inputs contains exactly the ports whose
	// token was Ready with action Consume. The returned map keys are
	// output PortIds; a port with no entry emits nothing in OutputRule's
	// default wiring.
	Run(ctx *runtime.Context, state State, inputs map[dataflow.PortId]dataflow.Message) (map[dataflow.PortId]dataflow.Payload, error)

	// OutputRule maps produced outputs (and an optional deadline miss) to
	// what is actually dispatched. Omitting a port means nothing is sent
	// on it this cycle — see DESIGN.md Open Question #1.
	OutputRule(ctx *runtime.Context, state State, outputs map[dataflow.PortId]dataflow.Payload, miss *dataflow.LocalDeadlineMiss) (map[dataflow.PortId]dataflow.NodeOutput, error)
}
