package engine

import (
	"sync"

	"firestige.xyz/otusflow/pkg/dataflow"
)

// WatermarkTracker records, per input port, the highest watermark a
// runner has observed, and the combined (minimum-across-ports) watermark
// the node as a whole has cleared. Read-only introspection is exposed via
// Instance.Watermark.
type WatermarkTracker struct {
	mu   sync.Mutex
	high map[dataflow.PortId]dataflow.Timestamp
}

// NewWatermarkTracker returns an empty tracker.
func NewWatermarkTracker() *WatermarkTracker {
	return &WatermarkTracker{high: make(map[dataflow.PortId]dataflow.Timestamp)}
}

// Observe records ts for port if it is newer than the port's current high
// watermark.
func (w *WatermarkTracker) Observe(port dataflow.PortId, ts dataflow.Timestamp) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cur, ok := w.high[port]; !ok || cur.Before(ts) {
		w.high[port] = ts
	}
}

// Combined returns the minimum watermark across every observed port: a
// node cannot claim progress past its slowest input. The zero Timestamp is
// returned if no port has reported a watermark yet.
func (w *WatermarkTracker) Combined() dataflow.Timestamp {
	w.mu.Lock()
	defer w.mu.Unlock()
	var min dataflow.Timestamp
	first := true
	for _, ts := range w.high {
		if first || ts.Before(min) {
			min = ts
			first = false
		}
	}
	return min
}
