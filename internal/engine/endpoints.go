package engine

import (
	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/internal/link"
	"firestige.xyz/otusflow/pkg/dataflow"
)

// Endpoints wires a node's declared ports to the concrete links
// internal/instance constructed for it when instantiating a graph.Dataflow.
// An input port has at most one inbound Link (builder invariant); an
// output port fans out to zero or more.
type Endpoints struct {
	Inputs  map[dataflow.PortId]*link.Link
	Outputs map[dataflow.PortId][]*link.Link
}

// dispatchToPort sends msg on every remaining link of the given output port,
// pruning any link that reports PortDisconnected. It reports whether the
// port still has at least one live link after the attempt.
func dispatchToPort(ep *Endpoints, port dataflow.PortId, sendFresh func(l *link.Link) error) (stillLive bool) {
	links := ep.Outputs[port]
	live := links[:0]
	for _, l := range links {
		if err := sendFresh(l); err == errs.ErrPortDisconnected {
			continue // disconnected: drop from fan-out, shrink it permanently
		}
		live = append(live, l)
	}
	ep.Outputs[port] = live
	return len(live) > 0
}

// totalOutputLinks counts every link remaining across all output ports;
// used to detect that a node has fully drained (spec §7: "only when all
// outputs are disconnected does the operator treat itself as draining").
func totalOutputLinks(ep *Endpoints) int {
	n := 0
	for _, links := range ep.Outputs {
		n += len(links)
	}
	return n
}
