// Package graph implements the Dataflow builder (spec §4.6): adding
// sources, operators and sinks, wiring links between their ports, and
// validating every invariant spec.md §3 requires before an embedder can
// hand the result to the instance lifecycle manager.
//
// Grounded on the teacher's internal/pipeline/builder.go fluent builder
// style and internal/task/manager.go's Create method, whose first two
// phases (Validate, Resolve) are exactly what AddLink's invariant checks
// generalize from plugin-name lookups to node/port/link graph shape.
package graph

import (
	"fmt"
	"time"

	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/internal/link"
	"firestige.xyz/otusflow/pkg/dataflow"
	"firestige.xyz/otusflow/pkg/node"
)

// SourceNode is a fully-configured source ready for instantiation.
type SourceNode struct {
	ID     dataflow.NodeId
	Output dataflow.PortDescriptor
	Impl   node.Source
	Config node.Config
}

// OperatorNode is a fully-configured operator ready for instantiation.
type OperatorNode struct {
	ID            dataflow.NodeId
	Inputs        []dataflow.PortDescriptor
	Outputs       []dataflow.PortDescriptor
	LocalDeadline time.Duration // zero means no deadline configured
	Impl          node.Operator
	Config        node.Config
}

// SinkNode is a fully-configured sink ready for instantiation.
type SinkNode struct {
	ID    dataflow.NodeId
	Input dataflow.PortDescriptor
	Impl  node.Sink

	Config node.Config
}

// LinkSpec is one edge of the graph: a wired (from port) -> (to port) pair
// plus its transport knobs.
type LinkSpec struct {
	From     dataflow.NodeId
	FromPort dataflow.PortId
	To       dataflow.NodeId
	ToPort   dataflow.PortId

	Capacity int
	Policy   link.Policy
}

// portRef identifies one port of one node, used internally for lookups.
type portRef struct {
	node dataflow.NodeId
	port dataflow.PortId
}

// Dataflow is the builder's accumulated, validated graph state.
type Dataflow struct {
	sources   map[dataflow.NodeId]*SourceNode
	operators map[dataflow.NodeId]*OperatorNode
	sinks     map[dataflow.NodeId]*SinkNode
	links     []LinkSpec

	// outputPortType / inputPortType index every declared port's type for
	// link validation; inboundLinked tracks which input ports already
	// have an incoming link (at most one per spec §3).
	outputPortType map[portRef]string
	inputPortType  map[portRef]string
	inboundLinked  map[portRef]bool
}

// New returns an empty Dataflow builder.
func New() *Dataflow {
	return &Dataflow{
		sources:        make(map[dataflow.NodeId]*SourceNode),
		operators:      make(map[dataflow.NodeId]*OperatorNode),
		sinks:          make(map[dataflow.NodeId]*SinkNode),
		outputPortType: make(map[portRef]string),
		inputPortType:  make(map[portRef]string),
		inboundLinked:  make(map[portRef]bool),
	}
}

func (d *Dataflow) nodeExists(id dataflow.NodeId) bool {
	_, ok := d.sources[id]
	if ok {
		return true
	}
	_, ok = d.operators[id]
	if ok {
		return true
	}
	_, ok = d.sinks[id]
	return ok
}

// AddStaticSource registers a source node. Returns errs.ErrDuplicateNode if
// id is already used.
func (d *Dataflow) AddStaticSource(id dataflow.NodeId, output dataflow.PortDescriptor, impl node.Source, cfg node.Config) error {
	if d.nodeExists(id) {
		return fmt.Errorf("source %q: %w", id, errs.ErrDuplicateNode)
	}
	d.sources[id] = &SourceNode{ID: id, Output: output, Impl: impl, Config: cfg}
	d.outputPortType[portRef{id, output.PortId}] = output.PortType
	return nil
}

// AddStaticOperator registers an operator node with its declared input and
// output ports and optional local deadline.
func (d *Dataflow) AddStaticOperator(id dataflow.NodeId, inputs, outputs []dataflow.PortDescriptor, localDeadline time.Duration, impl node.Operator, cfg node.Config) error {
	if d.nodeExists(id) {
		return fmt.Errorf("operator %q: %w", id, errs.ErrDuplicateNode)
	}
	d.operators[id] = &OperatorNode{
		ID: id, Inputs: inputs, Outputs: outputs,
		LocalDeadline: localDeadline, Impl: impl, Config: cfg,
	}
	for _, in := range inputs {
		d.inputPortType[portRef{id, in.PortId}] = in.PortType
	}
	for _, out := range outputs {
		d.outputPortType[portRef{id, out.PortId}] = out.PortType
	}
	return nil
}

// AddStaticSink registers a sink node.
func (d *Dataflow) AddStaticSink(id dataflow.NodeId, input dataflow.PortDescriptor, impl node.Sink, cfg node.Config) error {
	if d.nodeExists(id) {
		return fmt.Errorf("sink %q: %w", id, errs.ErrDuplicateNode)
	}
	d.sinks[id] = &SinkNode{ID: id, Input: input, Impl: impl, Config: cfg}
	d.inputPortType[portRef{id, input.PortId}] = input.PortType
	return nil
}

// AddLink wires an output port to an input port, validating that both
// endpoints exist, their port types match, and the input port does not
// already have an incoming link.
func (d *Dataflow) AddLink(from dataflow.NodeId, fromPort dataflow.PortId, to dataflow.NodeId, toPort dataflow.PortId, capacity int, policy link.Policy) error {
	outType, ok := d.outputPortType[portRef{from, fromPort}]
	if !ok {
		return fmt.Errorf("output port %s.%s: %w", from, fromPort, errs.ErrUnknownPort)
	}
	inRef := portRef{to, toPort}
	inType, ok := d.inputPortType[inRef]
	if !ok {
		return fmt.Errorf("input port %s.%s: %w", to, toPort, errs.ErrUnknownPort)
	}
	if outType != inType {
		return fmt.Errorf("link %s.%s -> %s.%s: %w (%s != %s)", from, fromPort, to, toPort, errs.ErrPortTypeMismatch, outType, inType)
	}
	if d.inboundLinked[inRef] {
		return fmt.Errorf("input port %s.%s: %w", to, toPort, errs.ErrDuplicateLink)
	}
	d.inboundLinked[inRef] = true

	d.links = append(d.links, LinkSpec{
		From: from, FromPort: fromPort,
		To: to, ToPort: toPort,
		Capacity: capacity, Policy: policy,
	})
	return nil
}

// Validate checks that every declared operator and sink input port
// received exactly one inbound link. A port declared via AddStaticOperator
// or AddStaticSink but never wired by AddLink would otherwise sit forever
// Pending (spec §7): its runner can never gather a Ready token for it, so
// Validate rejects the graph up front instead of instantiating a
// permanently-starved node.
func (d *Dataflow) Validate() error {
	for id, op := range d.operators {
		for _, in := range op.Inputs {
			if !d.inboundLinked[portRef{id, in.PortId}] {
				return fmt.Errorf("operator %q input %q: %w", id, in.PortId, errs.ErrMissingInput)
			}
		}
	}
	for id, sink := range d.sinks {
		if !d.inboundLinked[portRef{id, sink.Input.PortId}] {
			return fmt.Errorf("sink %q input %q: %w", id, sink.Input.PortId, errs.ErrMissingInput)
		}
	}
	return nil
}

// Sources, Operators, Sinks and Links expose the builder's accumulated
// state for the instance lifecycle manager to instantiate.
func (d *Dataflow) Sources() map[dataflow.NodeId]*SourceNode     { return d.sources }
func (d *Dataflow) Operators() map[dataflow.NodeId]*OperatorNode { return d.operators }
func (d *Dataflow) Sinks() map[dataflow.NodeId]*SinkNode         { return d.sinks }
func (d *Dataflow) Links() []LinkSpec                            { return d.links }
