package engine

import (
	"errors"
	"sync"
	"sync/atomic"

	"firestige.xyz/otusflow/internal/runtime"
	"firestige.xyz/otusflow/pkg/dataflow"
	"firestige.xyz/otusflow/pkg/node"
)

// errExhausted is returned by testSource once its fixed sequence is spent,
// faulting the runner — acceptable in these tests since assertions read
// off the sink's channel, not the source's final lifecycle state.
var errExhausted = errors.New("engine_test: source exhausted")

type testSource struct {
	values      []int
	idx         int
	finalizedCh chan struct{}
}

func (s *testSource) Initialize(node.Config) (node.State, error) { return nil, nil }
func (s *testSource) Finalize(node.State) error {
	if s.finalizedCh != nil {
		close(s.finalizedCh)
	}
	return nil
}
func (s *testSource) Run(*runtime.Context, node.State) (dataflow.Payload, error) {
	if s.idx >= len(s.values) {
		return dataflow.Payload{}, errExhausted
	}
	v := s.values[s.idx]
	s.idx++
	return dataflow.NewPayload(v), nil
}

// dropOddOperator implements S1: sets action Drop for odd values, fires
// every cycle, passes even values through unchanged.
type dropOddOperator struct {
	in, out dataflow.PortId
}

func (o *dropOddOperator) Initialize(node.Config) (node.State, error) { return nil, nil }
func (o *dropOddOperator) Finalize(node.State) error                  { return nil }

func (o *dropOddOperator) InputRule(_ *runtime.Context, _ node.State, tokens map[dataflow.PortId]*dataflow.Token) (bool, error) {
	tok := tokens[o.in]
	if !tok.IsReady() {
		return false, nil
	}
	v, err := dataflow.As[int](tok.Message.Payload)
	if err != nil {
		return false, err
	}
	if v%2 != 0 {
		tok.SetAction(dataflow.Drop)
	}
	return true, nil
}

func (o *dropOddOperator) Run(_ *runtime.Context, _ node.State, inputs map[dataflow.PortId]dataflow.Message) (map[dataflow.PortId]dataflow.Payload, error) {
	msg, ok := inputs[o.in]
	if !ok {
		return nil, nil
	}
	return map[dataflow.PortId]dataflow.Payload{o.out: msg.Payload}, nil
}

func (o *dropOddOperator) OutputRule(_ *runtime.Context, _ node.State, outputs map[dataflow.PortId]dataflow.Payload, _ *dataflow.LocalDeadlineMiss) (map[dataflow.PortId]dataflow.NodeOutput, error) {
	return node.DefaultOutputRule(outputs), nil
}

// sleepyOperator implements S2: calls sleep() on every Run, reporting
// whatever deadline_miss output_rule observed via missCh.
type sleepyOperator struct {
	in, out dataflow.PortId
	sleep   func()
	missCh  chan *dataflow.LocalDeadlineMiss
}

func (o *sleepyOperator) Initialize(node.Config) (node.State, error) { return nil, nil }
func (o *sleepyOperator) Finalize(node.State) error                  { return nil }

func (o *sleepyOperator) InputRule(_ *runtime.Context, _ node.State, tokens map[dataflow.PortId]*dataflow.Token) (bool, error) {
	return node.DefaultInputRule(tokens), nil
}

func (o *sleepyOperator) Run(_ *runtime.Context, _ node.State, inputs map[dataflow.PortId]dataflow.Message) (map[dataflow.PortId]dataflow.Payload, error) {
	o.sleep()
	msg := inputs[o.in]
	return map[dataflow.PortId]dataflow.Payload{o.out: msg.Payload}, nil
}

func (o *sleepyOperator) OutputRule(_ *runtime.Context, _ node.State, outputs map[dataflow.PortId]dataflow.Payload, miss *dataflow.LocalDeadlineMiss) (map[dataflow.PortId]dataflow.NodeOutput, error) {
	o.missCh <- miss
	return node.DefaultOutputRule(outputs), nil
}

// joinOperator requires both of its two input ports Ready before firing
// (node.DefaultInputRule), summing their int payloads. inputRuleCalls
// counts every InputRule invocation so a test can detect a busy-spin: a
// correctly-blocking runner invokes it only once per arrival, not in a
// tight loop while waiting for the second port.
type joinOperator struct {
	a, b, out dataflow.PortId

	inputRuleCalls atomic.Int64
}

func (o *joinOperator) Initialize(node.Config) (node.State, error) { return nil, nil }
func (o *joinOperator) Finalize(node.State) error                  { return nil }

func (o *joinOperator) InputRule(_ *runtime.Context, _ node.State, tokens map[dataflow.PortId]*dataflow.Token) (bool, error) {
	o.inputRuleCalls.Add(1)
	return node.DefaultInputRule(tokens), nil
}

func (o *joinOperator) Run(_ *runtime.Context, _ node.State, inputs map[dataflow.PortId]dataflow.Message) (map[dataflow.PortId]dataflow.Payload, error) {
	av, err := dataflow.As[int](inputs[o.a].Payload)
	if err != nil {
		return nil, err
	}
	bv, err := dataflow.As[int](inputs[o.b].Payload)
	if err != nil {
		return nil, err
	}
	return map[dataflow.PortId]dataflow.Payload{o.out: dataflow.NewPayload(av + bv)}, nil
}

func (o *joinOperator) OutputRule(_ *runtime.Context, _ node.State, outputs map[dataflow.PortId]dataflow.Payload, _ *dataflow.LocalDeadlineMiss) (map[dataflow.PortId]dataflow.NodeOutput, error) {
	return node.DefaultOutputRule(outputs), nil
}

// recordingSink appends every received int payload to a slice under a
// mutex and signals recvCh after each append.
type recordingSink struct {
	mu     sync.Mutex
	values []int
	recvCh chan int
}

func (s *recordingSink) Initialize(node.Config) (node.State, error) { return nil, nil }
func (s *recordingSink) Finalize(node.State) error                  { return nil }

func (s *recordingSink) Run(_ *runtime.Context, _ node.State, msg dataflow.Message) error {
	v, err := dataflow.As[int](msg.Payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values = append(s.values, v)
	s.mu.Unlock()
	if s.recvCh != nil {
		s.recvCh <- v
	}
	return nil
}

func (s *recordingSink) Values() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.values))
	copy(out, s.values)
	return out
}

// slowSink sleeps delay before accepting each message, modeling S4's
// backpressure scenario.
type slowSink struct {
	delay  func()
	mu     sync.Mutex
	values []int
}

func (s *slowSink) Initialize(node.Config) (node.State, error) { return nil, nil }
func (s *slowSink) Finalize(node.State) error                  { return nil }

func (s *slowSink) Run(_ *runtime.Context, _ node.State, msg dataflow.Message) error {
	s.delay()
	v, err := dataflow.As[int](msg.Payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values = append(s.values, v)
	s.mu.Unlock()
	return nil
}

func (s *slowSink) Values() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.values))
	copy(out, s.values)
	return out
}
