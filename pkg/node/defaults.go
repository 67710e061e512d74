package node

import "firestige.xyz/otusflow/pkg/dataflow"

// DefaultInputRule fires iff every input port's token is Ready. It mutates
// no token actions; tokens left Pending simply keep the operator waiting.
// Grounded on original_source's free-function default_input_rule used by
// zenoh-flow/tests/local_deadline.rs.
func DefaultInputRule(tokens map[dataflow.PortId]*dataflow.Token) bool {
	for _, tok := range tokens {
		if !tok.IsReady() {
			return false
		}
	}
	return true
}

// DefaultOutputRule forwards each produced payload unmodified to its
// corresponding output port, ignoring the deadline miss. A port with no
// entry in outputs is omitted from the result — no implicit watermark
// forwarding (DESIGN.md Open Question #1).
func DefaultOutputRule(outputs map[dataflow.PortId]dataflow.Payload) map[dataflow.PortId]dataflow.NodeOutput {
	result := make(map[dataflow.PortId]dataflow.NodeOutput, len(outputs))
	for port, payload := range outputs {
		result[port] = dataflow.NewDataOutput(payload)
	}
	return result
}
