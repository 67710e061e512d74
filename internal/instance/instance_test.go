package instance

import (
	"context"
	"sync"
	"testing"
	"time"

	"firestige.xyz/otusflow/internal/engine"
	"firestige.xyz/otusflow/internal/graph"
	"firestige.xyz/otusflow/internal/runtime"
	"firestige.xyz/otusflow/pkg/dataflow"
	"firestige.xyz/otusflow/pkg/node"
)

type orderLog struct {
	mu    sync.Mutex
	names []string
}

func (l *orderLog) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *orderLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

type foreverSource struct {
	v    int
	log  *orderLog
	name string
}

func (s *foreverSource) Initialize(node.Config) (node.State, error) { return nil, nil }
func (s *foreverSource) Finalize(node.State) error {
	if s.log != nil {
		s.log.record(s.name)
	}
	return nil
}
func (s *foreverSource) Run(*runtime.Context, node.State) (dataflow.Payload, error) {
	return dataflow.NewPayload(s.v), nil
}

type passthroughOperator struct {
	in, out dataflow.PortId
	log     *orderLog
	name    string
}

func (o *passthroughOperator) Initialize(node.Config) (node.State, error) { return nil, nil }
func (o *passthroughOperator) Finalize(node.State) error {
	if o.log != nil {
		o.log.record(o.name)
	}
	return nil
}
func (o *passthroughOperator) InputRule(_ *runtime.Context, _ node.State, tokens map[dataflow.PortId]*dataflow.Token) (bool, error) {
	return node.DefaultInputRule(tokens), nil
}
func (o *passthroughOperator) Run(_ *runtime.Context, _ node.State, inputs map[dataflow.PortId]dataflow.Message) (map[dataflow.PortId]dataflow.Payload, error) {
	return map[dataflow.PortId]dataflow.Payload{o.out: inputs[o.in].Payload}, nil
}
func (o *passthroughOperator) OutputRule(_ *runtime.Context, _ node.State, outputs map[dataflow.PortId]dataflow.Payload, _ *dataflow.LocalDeadlineMiss) (map[dataflow.PortId]dataflow.NodeOutput, error) {
	return node.DefaultOutputRule(outputs), nil
}

type countingSink struct {
	log  *orderLog
	name string
}

func (s *countingSink) Initialize(node.Config) (node.State, error) { return nil, nil }
func (s *countingSink) Finalize(node.State) error {
	if s.log != nil {
		s.log.record(s.name)
	}
	return nil
}
func (s *countingSink) Run(*runtime.Context, node.State, dataflow.Message) error { return nil }

func buildChain(t *testing.T, log *orderLog) *Instance {
	t.Helper()
	d := graph.New()
	intPort := func(id dataflow.PortId) dataflow.PortDescriptor {
		return dataflow.PortDescriptor{PortId: id, PortType: "int"}
	}

	src := &foreverSource{v: 1, log: log, name: "src"}
	op := &passthroughOperator{in: "in", out: "out", log: log, name: "op"}
	sink := &countingSink{log: log, name: "sink"}

	if err := d.AddStaticSource("src", intPort("out"), src, nil); err != nil {
		t.Fatalf("AddStaticSource: %v", err)
	}
	if err := d.AddStaticOperator("op", []dataflow.PortDescriptor{intPort("in")}, []dataflow.PortDescriptor{intPort("out")}, 0, op, nil); err != nil {
		t.Fatalf("AddStaticOperator: %v", err)
	}
	if err := d.AddStaticSink("sink", intPort("in"), sink, nil); err != nil {
		t.Fatalf("AddStaticSink: %v", err)
	}
	if err := d.AddLink("src", "out", "op", "in", 2, 0); err != nil {
		t.Fatalf("AddLink src->op: %v", err)
	}
	if err := d.AddLink("op", "out", "sink", "in", 2, 0); err != nil {
		t.Fatalf("AddLink op->sink: %v", err)
	}

	inst, err := TryInstantiate(d, runtime.NewContext("test"))
	if err != nil {
		t.Fatalf("TryInstantiate: %v", err)
	}
	return inst
}

// TestGracefulStopOrder is scenario S5: stop_node(source) then
// stop_node(operator) then stop_node(sink); each node's Finalize runs
// exactly once, in that order.
func TestGracefulStopOrder(t *testing.T) {
	log := &orderLog{}
	inst := buildChain(t, log)

	if err := inst.StartAll(); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := inst.StopNode("src"); err != nil {
		t.Fatalf("StopNode(src): %v", err)
	}
	if err := inst.StopNode("op"); err != nil {
		t.Fatalf("StopNode(op): %v", err)
	}
	if err := inst.StopNode("sink"); err != nil {
		t.Fatalf("StopNode(sink): %v", err)
	}

	got := log.snapshot()
	want := []string{"src", "op", "sink"}
	if len(got) != len(want) {
		t.Fatalf("expected finalize order %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected finalize order %v, got %v", want, got)
			break
		}
	}
}

// TestKillExitsWithoutFinalize is scenario S6: after running for a short
// while, kill on all nodes exits tasks promptly and Finalize is never
// invoked on killed nodes.
func TestKillExitsWithoutFinalize(t *testing.T) {
	log := &orderLog{}
	inst := buildChain(t, log)

	if err := inst.StartAll(); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := inst.KillAll(); err != nil {
		t.Fatalf("KillAll: %v", err)
	}

	deadline := time.After(200 * time.Millisecond)
	for _, id := range inst.GetNodes() {
		n := inst.nodes[id]
		select {
		case <-n.done:
		case <-deadline:
			t.Fatalf("node %q did not exit promptly after kill", id)
		}
	}

	if got := log.snapshot(); len(got) != 0 {
		t.Errorf("expected no Finalize calls after kill, got %v", got)
	}
}

// TestNodeStateReflectsLifecycle checks NodeState reports Running while
// started and Stopped once StopNode returns.
func TestNodeStateReflectsLifecycle(t *testing.T) {
	log := &orderLog{}
	inst := buildChain(t, log)

	if _, ok := inst.NodeState("nope"); ok {
		t.Error("expected NodeState to report unknown for an unregistered id")
	}

	if err := inst.StartAll(); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	for _, id := range []dataflow.NodeId{"src", "op", "sink"} {
		state, ok := inst.NodeState(id)
		if !ok {
			t.Fatalf("NodeState(%q): expected ok", id)
		}
		if state != engine.StateRunning {
			t.Errorf("NodeState(%q): expected Running, got %v", id, state)
		}
	}

	if err := inst.StopNode("src"); err != nil {
		t.Fatalf("StopNode(src): %v", err)
	}
	if err := inst.StopNode("op"); err != nil {
		t.Fatalf("StopNode(op): %v", err)
	}
	if err := inst.StopNode("sink"); err != nil {
		t.Fatalf("StopNode(sink): %v", err)
	}

	for _, id := range []dataflow.NodeId{"src", "op", "sink"} {
		state, _ := inst.NodeState(id)
		if state != engine.StateStopped {
			t.Errorf("NodeState(%q): expected Stopped, got %v", id, state)
		}
	}
}

// TestDrainClosesLinksAndCascades is the fix for the false Drain doc
// comment: Draining a running chain must close every link so EndOfStream
// genuinely cascades, and every node must land in StateStopped.
func TestDrainClosesLinksAndCascades(t *testing.T) {
	log := &orderLog{}
	inst := buildChain(t, log)

	if err := inst.StartAll(); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- inst.Drain(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Drain: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Drain did not complete")
	}

	for _, l := range inst.Links() {
		if err := l.Send(context.Background(), dataflow.Message{}); err == nil {
			t.Errorf("expected link %s.%s -> %s.%s to be closed after Drain", l.From, l.FromPort, l.To, l.ToPort)
		}
	}
	for _, id := range []dataflow.NodeId{"src", "op", "sink"} {
		state, _ := inst.NodeState(id)
		if state != engine.StateStopped {
			t.Errorf("NodeState(%q): expected Stopped after Drain, got %v", id, state)
		}
	}
}

// TestStartNodeIdempotent ensures starting an already-started node
// returns AlreadyRunning rather than spawning a second task.
func TestStartNodeIdempotent(t *testing.T) {
	log := &orderLog{}
	inst := buildChain(t, log)

	if err := inst.StartNode("src"); err != nil {
		t.Fatalf("first StartNode: %v", err)
	}
	err := inst.StartNode("src")
	if err == nil {
		t.Fatal("expected AlreadyRunning on second StartNode")
	}
	inst.KillAll()
}
