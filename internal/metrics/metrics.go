// Package metrics exposes the dataflow core's per-node counters (spec.md
// §4.7's lifecycle, §4.3/§4.5's firing outcomes) as Prometheus series,
// polled off internal/instance.Instance on an interval rather than
// pushed inline from the firing loop — the firing loop only ever touches
// its own engine.Metrics atomics, never a global registry.
//
// Grounded on the teacher's internal/metrics: same promauto Vec
// construction and metrics.Server, generalized from packet-capture
// counters (captured/dropped packets, reassembly fragments) to the
// dataflow core's own observable events (fired/dropped/kept tokens,
// deadline misses, faults, link buffering).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// The Node* series below mirror cumulative counters already held as atomics
// in engine.Metrics (one per runner); the collector polls and re-publishes
// their current value rather than accumulating its own deltas, so these are
// GaugeVecs even though they report monotonically increasing counts.
var (
	// NodeFired reports a node's total successful run()/input_rule firings.
	NodeFired = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otusflow_node_fired",
			Help: "Total number of times a node's run (or input_rule) fired",
		},
		[]string{"node"},
	)

	// NodeDropped reports tokens an input_rule set to Drop.
	NodeDropped = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otusflow_node_dropped",
			Help: "Total number of tokens dropped by a node's input_rule",
		},
		[]string{"node"},
	)

	// NodeKept reports tokens an input_rule set to Keep.
	NodeKept = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otusflow_node_kept",
			Help: "Total number of tokens kept at the head of a port queue",
		},
		[]string{"node"},
	)

	// NodeDeadlineMisses reports local deadline overruns (spec.md §4.5).
	NodeDeadlineMisses = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otusflow_node_deadline_misses",
			Help: "Total number of times a node's run exceeded its local deadline",
		},
		[]string{"node"},
	)

	// NodeFaults reports run()/input_rule/output_rule errors.
	NodeFaults = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otusflow_node_faults",
			Help: "Total number of errors returned by a node's callbacks",
		},
		[]string{"node"},
	)

	// NodeDispatched reports messages a node emitted downstream.
	NodeDispatched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otusflow_node_dispatched",
			Help: "Total number of messages dispatched downstream by a node",
		},
		[]string{"node"},
	)

	// LinkBufferedMessages tracks the current number of messages queued on
	// a link (spec.md §4.1's bounded buffer).
	LinkBufferedMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otusflow_link_buffered_messages",
			Help: "Current number of messages buffered on a link",
		},
		[]string{"from", "to"},
	)

	// LinkDropped reports messages a PolicyDropOldest link has evicted.
	LinkDropped = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otusflow_link_dropped",
			Help: "Total number of messages a link evicted under PolicyDropOldest",
		},
		[]string{"from", "to"},
	)
)
