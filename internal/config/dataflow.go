package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/internal/graph"
	"firestige.xyz/otusflow/internal/link"
	"firestige.xyz/otusflow/pkg/dataflow"
	"firestige.xyz/otusflow/pkg/node"
	"firestige.xyz/otusflow/pkg/plugin"
)

// DataflowConfig declares the nodes and links of one dataflow, generalizing
// the teacher's per-task TaskConfig (capture/parsers/processors/reporters)
// to the core's Source/Operator/Sink/Link shape. Loading is in scope per
// spec.md's ambient stack even though the wire descriptor format itself is
// a Non-goal (spec.md §1); resolving a DataflowConfig into a
// graph.Dataflow mirrors TaskManager.Create's Resolve phase.
type DataflowConfig struct {
	Sources   []NodeSpec `json:"sources" yaml:"sources"`
	Operators []NodeSpec `json:"operators" yaml:"operators"`
	Sinks     []NodeSpec `json:"sinks" yaml:"sinks"`
	Links     []LinkSpec `json:"links" yaml:"links"`
}

// dataflowRoot is the top-level wrapper matching `dataflow: ...` in YAML.
type dataflowRoot struct {
	Dataflow DataflowConfig `json:"dataflow" yaml:"dataflow"`
}

// PortSpec names one port and the opaque type string carried across it.
type PortSpec struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`
}

// NodeSpec configures one node. Which of Output/Inputs+Outputs/Input is
// read depends on which of Sources/Operators/Sinks the spec appears under.
type NodeSpec struct {
	ID      string         `json:"id" yaml:"id"`
	Factory string         `json:"factory" yaml:"factory"` // plugin.Registry lookup name
	Config  map[string]any `json:"config" yaml:"config"`

	Output  PortSpec   `json:"output" yaml:"output"`   // sources
	Inputs  []PortSpec `json:"inputs" yaml:"inputs"`   // operators
	Outputs []PortSpec `json:"outputs" yaml:"outputs"` // operators
	Input   PortSpec   `json:"input" yaml:"input"`     // sinks

	LocalDeadline string `json:"local_deadline" yaml:"local_deadline"` // operators, e.g. "50ms"
}

// LinkSpec wires one output port to one input port.
type LinkSpec struct {
	From     string `json:"from" yaml:"from"`
	FromPort string `json:"from_port" yaml:"from_port"`
	To       string `json:"to" yaml:"to"`
	ToPort   string `json:"to_port" yaml:"to_port"`

	Capacity int    `json:"capacity" yaml:"capacity"`
	Policy   string `json:"policy" yaml:"policy"` // "block" (default) | "drop_oldest"
}

// LoadDataflow parses a dataflow config from file, detecting JSON/YAML by
// extension the same way the teacher's ParseTaskConfigAuto does for
// TaskConfig.
func LoadDataflow(path string) (*DataflowConfig, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var root dataflowRoot
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		err = json.Unmarshal(data, &root)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, &root)
	default:
		if jerr := json.Unmarshal(data, &root); jerr != nil {
			if yerr := yaml.Unmarshal(data, &root); yerr != nil {
				return nil, fmt.Errorf("failed to parse dataflow config (tried JSON and YAML): JSON: %v; YAML: %v", jerr, yerr)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataflow config: %w", err)
	}

	cfg := root.Dataflow
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every node has an id and factory name, that no id
// is declared twice, and that at least one source and one sink exist.
// Links are not checked here; their endpoints are validated later in
// Resolve, via the graph builder.
func (dc *DataflowConfig) Validate() error {
	seen := make(map[string]bool)
	for _, group := range [][]NodeSpec{dc.Sources, dc.Operators, dc.Sinks} {
		for _, n := range group {
			if n.ID == "" {
				return fmt.Errorf("%w: node missing id", errs.ErrConfigInvalid)
			}
			if n.Factory == "" {
				return fmt.Errorf("%w: node %q missing factory", errs.ErrConfigInvalid, n.ID)
			}
			if seen[n.ID] {
				return fmt.Errorf("%w: node %q declared twice", errs.ErrConfigInvalid, n.ID)
			}
			seen[n.ID] = true
		}
	}
	if len(dc.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", errs.ErrConfigInvalid)
	}
	if len(dc.Sinks) == 0 {
		return fmt.Errorf("%w: at least one sink is required", errs.ErrConfigInvalid)
	}
	return nil
}

// Resolve looks up each node's implementation in reg and builds a validated
// graph.Dataflow, the step spec.md's ambient stack places in scope ("the
// in-memory DataflowConfig → Dataflow resolution step itself is in scope,
// same shape as TaskManager.Create's Resolve phase").
func (dc *DataflowConfig) Resolve(reg *plugin.Registry) (*graph.Dataflow, error) {
	d := graph.New()

	for _, spec := range dc.Sources {
		factory, err := reg.Source(spec.Factory)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.ID, err)
		}
		out := dataflow.PortDescriptor{PortId: dataflow.PortId(spec.Output.ID), PortType: spec.Output.Type}
		if err := d.AddStaticSource(dataflow.NodeId(spec.ID), out, factory(), node.Config(spec.Config)); err != nil {
			return nil, err
		}
	}

	for _, spec := range dc.Operators {
		factory, err := reg.Operator(spec.Factory)
		if err != nil {
			return nil, fmt.Errorf("operator %q: %w", spec.ID, err)
		}
		inputs := toPortDescriptors(spec.Inputs)
		outputs := toPortDescriptors(spec.Outputs)
		deadline, err := parseDeadline(spec.LocalDeadline)
		if err != nil {
			return nil, fmt.Errorf("operator %q: %w", spec.ID, err)
		}
		if err := d.AddStaticOperator(dataflow.NodeId(spec.ID), inputs, outputs, deadline, factory(), node.Config(spec.Config)); err != nil {
			return nil, err
		}
	}

	for _, spec := range dc.Sinks {
		factory, err := reg.Sink(spec.Factory)
		if err != nil {
			return nil, fmt.Errorf("sink %q: %w", spec.ID, err)
		}
		in := dataflow.PortDescriptor{PortId: dataflow.PortId(spec.Input.ID), PortType: spec.Input.Type}
		if err := d.AddStaticSink(dataflow.NodeId(spec.ID), in, factory(), node.Config(spec.Config)); err != nil {
			return nil, err
		}
	}

	for _, l := range dc.Links {
		policy, err := parsePolicy(l.Policy)
		if err != nil {
			return nil, fmt.Errorf("link %s.%s -> %s.%s: %w", l.From, l.FromPort, l.To, l.ToPort, err)
		}
		capacity := l.Capacity
		if capacity <= 0 {
			capacity = 1
		}
		if err := d.AddLink(dataflow.NodeId(l.From), dataflow.PortId(l.FromPort), dataflow.NodeId(l.To), dataflow.PortId(l.ToPort), capacity, policy); err != nil {
			return nil, err
		}
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("resolve dataflow: %w", err)
	}
	return d, nil
}

func toPortDescriptors(specs []PortSpec) []dataflow.PortDescriptor {
	out := make([]dataflow.PortDescriptor, len(specs))
	for i, s := range specs {
		out[i] = dataflow.PortDescriptor{PortId: dataflow.PortId(s.ID), PortType: s.Type}
	}
	return out
}

func parseDeadline(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid local_deadline %q: %v", errs.ErrConfigInvalid, s, err)
	}
	return d, nil
}

func parsePolicy(s string) (link.Policy, error) {
	switch s {
	case "", "block":
		return link.PolicyBlock, nil
	case "drop_oldest":
		return link.PolicyDropOldest, nil
	default:
		return 0, fmt.Errorf("%w: unknown link policy %q", errs.ErrConfigInvalid, s)
	}
}
