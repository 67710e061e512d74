// Package plugin is the node factory registry (spec §4.8's "node registry
// interface for looking up factory entries"): name -> constructor maps for
// Source, Operator and Sink implementations, so an embedder can describe a
// dataflow by node-type name instead of wiring Go values directly.
//
// Grounded on the teacher's pkg/plugin/registry.go: package-level maps
// populated at init() time, panic on duplicate registration (a
// mis-registration is a compile-time-class bug, not a runtime condition to
// recover from), and sorted List* accessors — generalized here from four
// packet-pipeline plugin kinds (Capturer/Parser/Processor/Reporter) to the
// three dataflow node kinds.
package plugin

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/pkg/node"
)

// SourceFactory, OperatorFactory and SinkFactory construct a fresh,
// unconfigured node instance; Initialize(cfg) performs configuration
// injection afterward, same two-phase split as the teacher's factories.
type (
	SourceFactory   func() node.Source
	OperatorFactory func() node.Operator
	SinkFactory     func() node.Sink
)

// Registry is a name -> factory table per node kind. The zero value is not
// usable; construct with NewRegistry. A *Registry also satisfies
// internal/runtime.Registry, so it can be plugged into a Context for
// dynamic node lookup from within node code.
type Registry struct {
	mu        sync.RWMutex
	sources   map[string]SourceFactory
	operators map[string]OperatorFactory
	sinks     map[string]SinkFactory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:   make(map[string]SourceFactory),
		operators: make(map[string]OperatorFactory),
		sinks:     make(map[string]SinkFactory),
	}
}

// Default is the process-wide registry node factories register into from
// their own init() functions, mirroring the teacher's package-level
// registry maps.
var Default = NewRegistry()

func (r *Registry) RegisterSource(name string, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		panic("plugin: source name cannot be empty")
	}
	if factory == nil {
		panic("plugin: source factory cannot be nil")
	}
	if _, exists := r.sources[name]; exists {
		panic(fmt.Sprintf("plugin: source %q already registered", name))
	}
	r.sources[name] = factory
}

func (r *Registry) RegisterOperator(name string, factory OperatorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		panic("plugin: operator name cannot be empty")
	}
	if factory == nil {
		panic("plugin: operator factory cannot be nil")
	}
	if _, exists := r.operators[name]; exists {
		panic(fmt.Sprintf("plugin: operator %q already registered", name))
	}
	r.operators[name] = factory
}

func (r *Registry) RegisterSink(name string, factory SinkFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		panic("plugin: sink name cannot be empty")
	}
	if factory == nil {
		panic("plugin: sink factory cannot be nil")
	}
	if _, exists := r.sinks[name]; exists {
		panic(fmt.Sprintf("plugin: sink %q already registered", name))
	}
	r.sinks[name] = factory
}

// Source returns the factory registered under name, or ErrPluginNotFound.
func (r *Registry) Source(name string) (SourceFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", name, errs.ErrPluginNotFound)
	}
	return f, nil
}

// Operator returns the factory registered under name, or ErrPluginNotFound.
func (r *Registry) Operator(name string) (OperatorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.operators[name]
	if !ok {
		return nil, fmt.Errorf("operator %q: %w", name, errs.ErrPluginNotFound)
	}
	return f, nil
}

// Sink returns the factory registered under name, or ErrPluginNotFound.
func (r *Registry) Sink(name string) (SinkFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.sinks[name]
	if !ok {
		return nil, fmt.Errorf("sink %q: %w", name, errs.ErrPluginNotFound)
	}
	return f, nil
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sources)
}

func (r *Registry) ListOperators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.operators)
}

func (r *Registry) ListSinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sinks)
}

// Lookup implements internal/runtime.Registry: it searches sources, then
// operators, then sinks, returning the first factory found under name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.sources[name]; ok {
		return f, true
	}
	if f, ok := r.operators[name]; ok {
		return f, true
	}
	if f, ok := r.sinks[name]; ok {
		return f, true
	}
	return nil, false
}
