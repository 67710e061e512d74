// Package instance implements the dataflow instance & lifecycle manager
// (spec §4.7): turning a validated internal/graph.Dataflow into live,
// independently start/stop/kill-able runners, and aggregating their join
// handles.
//
// Grounded on the teacher's internal/scheduler.Scheduler (a mutex-guarded
// map of managed units, one constructor function building the map once)
// generalized from packet-capture jobs to dataflow nodes, and on
// internal/task.Manager's Create/Validate/Resolve staging for
// try_instantiate's construct-then-wire shape. Drain/KillAll use
// golang.org/x/sync/errgroup to fan out across nodes and aggregate errors,
// replacing the teacher's ad hoc WaitGroup-plus-channel join pattern.
package instance

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"firestige.xyz/otusflow/internal/engine"
	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/internal/graph"
	"firestige.xyz/otusflow/internal/link"
	"firestige.xyz/otusflow/internal/runtime"
	"firestige.xyz/otusflow/pkg/dataflow"
)

// runner is the common surface every engine runner kind satisfies.
type runner interface {
	Run(ctx context.Context) error
	Kill()
}

type nodeKind int

const (
	kindSource nodeKind = iota
	kindOperator
	kindSink
)

// managedNode tracks one node's runner and its current task lifecycle.
type managedNode struct {
	kind   nodeKind
	runner runner

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
}

// Instance is a fully instantiated, runnable dataflow (spec §3): every
// node has a constructed Runner owning its wired link endpoints.
type Instance struct {
	nodes     map[dataflow.NodeId]*managedNode
	sources   []dataflow.NodeId
	operators []dataflow.NodeId
	sinks     []dataflow.NodeId
	links     []*link.Link
}

// TryInstantiate constructs all links described by d's LinkSpecs and one
// Runner per declared node, wiring each to its input/output endpoints. It
// does not start anything; call StartNode per node (or StartAll) once
// ready.
func TryInstantiate(d *graph.Dataflow, rtCtx *runtime.Context) (*Instance, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("instantiate dataflow: %w", err)
	}

	links := make([]*link.Link, len(d.Links()))
	for i, spec := range d.Links() {
		capacity := spec.Capacity
		links[i] = link.New(spec.From, spec.FromPort, spec.To, spec.ToPort, capacity, link.WithPolicy(spec.Policy))
	}

	inst := &Instance{nodes: make(map[dataflow.NodeId]*managedNode), links: links}

	for id, src := range d.Sources() {
		var out []*link.Link
		for i, spec := range d.Links() {
			if spec.From == id && spec.FromPort == src.Output.PortId {
				out = append(out, links[i])
			}
		}
		r := engine.NewSourceRunner(id, src.Impl, src.Config, src.Output.PortId, out, rtCtx.Clone())
		inst.nodes[id] = &managedNode{kind: kindSource, runner: r}
		inst.sources = append(inst.sources, id)
	}

	for id, op := range d.Operators() {
		ep := engine.Endpoints{
			Inputs:  make(map[dataflow.PortId]*link.Link, len(op.Inputs)),
			Outputs: make(map[dataflow.PortId][]*link.Link, len(op.Outputs)),
		}
		for _, in := range op.Inputs {
			for i, spec := range d.Links() {
				if spec.To == id && spec.ToPort == in.PortId {
					ep.Inputs[in.PortId] = links[i]
					break
				}
			}
		}
		for _, out := range op.Outputs {
			var fanout []*link.Link
			for i, spec := range d.Links() {
				if spec.From == id && spec.FromPort == out.PortId {
					fanout = append(fanout, links[i])
				}
			}
			ep.Outputs[out.PortId] = fanout
		}
		r := engine.NewOperatorRunner(id, op.Impl, op.Config, ep, op.LocalDeadline, rtCtx.Clone())
		inst.nodes[id] = &managedNode{kind: kindOperator, runner: r}
		inst.operators = append(inst.operators, id)
	}

	for id, sink := range d.Sinks() {
		var in *link.Link
		for i, spec := range d.Links() {
			if spec.To == id && spec.ToPort == sink.Input.PortId {
				in = links[i]
				break
			}
		}
		r := engine.NewSinkRunner(id, sink.Impl, sink.Config, in, rtCtx.Clone())
		inst.nodes[id] = &managedNode{kind: kindSink, runner: r}
		inst.sinks = append(inst.sinks, id)
	}

	return inst, nil
}

// GetNodes enumerates every NodeId in the instance.
func (inst *Instance) GetNodes() []dataflow.NodeId {
	ids := make([]dataflow.NodeId, 0, len(inst.nodes))
	for id := range inst.nodes {
		ids = append(ids, id)
	}
	return ids
}

func (inst *Instance) GetSources() []dataflow.NodeId   { return append([]dataflow.NodeId{}, inst.sources...) }
func (inst *Instance) GetOperators() []dataflow.NodeId { return append([]dataflow.NodeId{}, inst.operators...) }
func (inst *Instance) GetSinks() []dataflow.NodeId     { return append([]dataflow.NodeId{}, inst.sinks...) }

// Links exposes the instance's wired links for observability callers such
// as internal/metrics; callers must not mutate the returned slice.
func (inst *Instance) Links() []*link.Link { return inst.links }

// NodeMetricsSnapshot returns the lifetime counters of the named node's
// runner, for exporters such as internal/metrics to poll periodically.
func (inst *Instance) NodeMetricsSnapshot(id dataflow.NodeId) (engine.Snapshot, bool) {
	n, ok := inst.nodes[id]
	if !ok {
		return engine.Snapshot{}, false
	}
	switch r := n.runner.(type) {
	case *engine.SourceRunner:
		return r.Metrics.Snapshot(), true
	case *engine.OperatorRunner:
		return r.Metrics.Snapshot(), true
	case *engine.SinkRunner:
		return r.Metrics.Snapshot(), true
	default:
		return engine.Snapshot{}, false
	}
}

// NodeState reports the named node's current lifecycle state (spec §3:
// Created -> Starting -> Running -> Stopping -> Stopped | Faulted, or
// Killed). The second return is false if id is unknown.
func (inst *Instance) NodeState(id dataflow.NodeId) (engine.NodeState, bool) {
	n, ok := inst.nodes[id]
	if !ok {
		return 0, false
	}
	switch r := n.runner.(type) {
	case *engine.SourceRunner:
		return r.State(), true
	case *engine.OperatorRunner:
		return r.State(), true
	case *engine.SinkRunner:
		return r.State(), true
	default:
		return 0, false
	}
}

// Watermark reports the named node's combined input watermark: the
// highest timestamp it has observed on every input port, clamped to its
// slowest port (spec §3's per-node WatermarkTracker). The second return is
// false if id is unknown or the node has not observed any watermark yet.
func (inst *Instance) Watermark(id dataflow.NodeId) (dataflow.Timestamp, bool) {
	n, ok := inst.nodes[id]
	if !ok {
		return dataflow.Timestamp{}, false
	}
	switch r := n.runner.(type) {
	case *engine.OperatorRunner:
		ts := r.Watermark().Combined()
		return ts, !ts.Wall.IsZero()
	case *engine.SinkRunner:
		ts := r.Watermark().Combined()
		return ts, !ts.Wall.IsZero()
	default:
		return dataflow.Timestamp{}, false // sources originate watermarks, they don't observe them
	}
}

func (inst *Instance) lookup(id dataflow.NodeId) (*managedNode, error) {
	n, ok := inst.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, errs.ErrNotRunning)
	}
	return n, nil
}

// StartNode spawns a supervised task executing id's runner. Idempotent:
// starting an already-started node returns ErrAlreadyRunning.
func (inst *Instance) StartNode(id dataflow.NodeId) error {
	n, err := inst.lookup(id)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return fmt.Errorf("node %q: %w", id, errs.ErrAlreadyRunning)
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	n.started = true
	go func() {
		defer close(n.done)
		n.runErr = n.runner.Run(ctx)
	}()
	return nil
}

// StopNode signals cooperative cancellation and awaits the runner's
// natural exit, guaranteeing Finalize has run by the time it returns (P7).
func (inst *Instance) StopNode(id dataflow.NodeId) error {
	n, err := inst.lookup(id)
	if err != nil {
		return err
	}
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return fmt.Errorf("node %q: %w", id, errs.ErrNotRunning)
	}
	cancel, done := n.cancel, n.done
	n.mu.Unlock()

	cancel()
	<-done
	return n.runErr
}

// Kill aborts id's task without awaiting it; Finalize is skipped. Intended
// for test teardown and unrecoverable fault handling.
func (inst *Instance) Kill(id dataflow.NodeId) error {
	n, err := inst.lookup(id)
	if err != nil {
		return err
	}
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return fmt.Errorf("node %q: %w", id, errs.ErrNotRunning)
	}
	cancel := n.cancel
	n.mu.Unlock()

	n.runner.Kill()
	cancel()
	return nil
}

// StartAll starts every node in the instance, sources last-to-first order
// not being material here: every node's WaitTokens phase simply blocks
// until upstream links produce data.
func (inst *Instance) StartAll() error {
	for id := range inst.nodes {
		if err := inst.StartNode(id); err != nil {
			return err
		}
	}
	return nil
}

// Drain implements the stop-order policy spec §4.7 recommends: stopping
// sources first lets EndOfStream propagate downstream naturally, because
// each runner's finish path closes its outbound links once it stops, so
// operators and sinks observe ErrEndOfStream on their inbound Receive and
// drain themselves in turn. The subsequent per-tier StopNode calls on
// operators and sinks are a bounded wait on that natural unwind, not the
// mechanism that drives it — they also cover nodes that never receive the
// cascade (e.g. a sink with no connected source).
func (inst *Instance) Drain(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for _, id := range inst.sources {
		id := id
		g.Go(func() error { return inst.StopNode(id) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, _ = errgroup.WithContext(ctx)
	for _, id := range inst.operators {
		id := id
		g.Go(func() error { return inst.StopNode(id) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, _ = errgroup.WithContext(ctx)
	for _, id := range inst.sinks {
		id := id
		g.Go(func() error { return inst.StopNode(id) })
	}
	return g.Wait()
}

// KillAll aborts every started node concurrently without awaiting
// Finalize, aggregating any lookup errors via errgroup.
func (inst *Instance) KillAll() error {
	g := new(errgroup.Group)
	for id := range inst.nodes {
		id := id
		g.Go(func() error { return inst.Kill(id) })
	}
	return g.Wait()
}
