package plugin

import (
	"errors"
	"testing"

	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/internal/runtime"
	"firestige.xyz/otusflow/pkg/dataflow"
	"firestige.xyz/otusflow/pkg/node"
)

type mockSource struct{}

func (mockSource) Initialize(node.Config) (node.State, error) { return nil, nil }
func (mockSource) Finalize(node.State) error                  { return nil }
func (mockSource) Run(*runtime.Context, node.State) (dataflow.Payload, error) {
	return dataflow.Payload{}, nil
}

func TestRegisterAndGetSource(t *testing.T) {
	r := NewRegistry()
	r.RegisterSource("mock", func() node.Source { return mockSource{} })

	factory, err := r.Source("mock")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if factory() == nil {
		t.Error("expected non-nil source instance")
	}
}

func TestGetUnknownSourceReturnsPluginNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Source("nope")
	if !errors.Is(err, errs.ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestDuplicateRegisterSourcePanics(t *testing.T) {
	r := NewRegistry()
	r.RegisterSource("dup", func() node.Source { return mockSource{} })

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.RegisterSource("dup", func() node.Source { return mockSource{} })
}

func TestEmptyNamePanics(t *testing.T) {
	r := NewRegistry()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on empty name")
		}
	}()
	r.RegisterSource("", func() node.Source { return mockSource{} })
}

func TestListSourcesSorted(t *testing.T) {
	r := NewRegistry()
	r.RegisterSource("c", func() node.Source { return mockSource{} })
	r.RegisterSource("a", func() node.Source { return mockSource{} })
	r.RegisterSource("b", func() node.Source { return mockSource{} })

	got := r.ListSources()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

type mockOperator struct{}

func (mockOperator) Initialize(node.Config) (node.State, error) { return nil, nil }
func (mockOperator) Finalize(node.State) error                  { return nil }
func (mockOperator) InputRule(*runtime.Context, node.State, map[dataflow.PortId]*dataflow.Token) (bool, error) {
	return false, nil
}
func (mockOperator) Run(*runtime.Context, node.State, map[dataflow.PortId]dataflow.Message) (map[dataflow.PortId]dataflow.Payload, error) {
	return nil, nil
}
func (mockOperator) OutputRule(*runtime.Context, node.State, map[dataflow.PortId]dataflow.Payload, *dataflow.LocalDeadlineMiss) (map[dataflow.PortId]dataflow.NodeOutput, error) {
	return nil, nil
}

// TestTypeSeparationSameName ensures the same name may be registered once
// per node kind without conflict: the registries are independent maps.
func TestTypeSeparationSameName(t *testing.T) {
	r := NewRegistry()
	name := "common"
	r.RegisterSource(name, func() node.Source { return mockSource{} })
	r.RegisterOperator(name, func() node.Operator { return mockOperator{} })

	if _, err := r.Source(name); err != nil {
		t.Errorf("Source(%q): %v", name, err)
	}
	if _, err := r.Operator(name); err != nil {
		t.Errorf("Operator(%q): %v", name, err)
	}
}
