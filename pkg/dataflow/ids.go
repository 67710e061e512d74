// Package dataflow defines the message, token and identifier types shared
// by every node, link and runner in the engine.
package dataflow

// NodeId identifies a node uniquely within one dataflow instance.
type NodeId string

// PortId identifies an input or output endpoint of a node. A PortId is
// only unique per node per direction, not across the whole graph.
type PortId string

// PortDescriptor names a port and the opaque type carried across it. Two
// ports are link-compatible iff their PortType strings are equal.
type PortDescriptor struct {
	PortId   PortId
	PortType string
}
