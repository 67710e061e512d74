// Package link implements the bounded, typed, single-producer/single-
// consumer channel that is the edge type of a dataflow graph (spec §4.1).
// Fan-out from one output port to several consumers is realized at the
// graph level by wiring one Link per downstream subscriber and cloning the
// Message onto each (internal/engine does the cloning); congestion on any
// one Link therefore never backpressures a sibling.
//
// Grounded on the teacher's internal/eventbus partitioned, channel-backed
// bus: a buffered channel per consumer, an atomic closed flag guarded with
// CompareAndSwap, and atomic counters for observability.
package link

import (
	"context"
	"sync/atomic"

	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/pkg/dataflow"
)

// Policy selects how a Link behaves when its buffer is full.
type Policy int

const (
	// PolicyBlock suspends the sender until the consumer makes room. This
	// is the default: it is the only policy that preserves end-to-end
	// backpressure without losing messages.
	PolicyBlock Policy = iota
	// PolicyDropOldest evicts the oldest buffered message to make room for
	// the new one rather than suspending the sender. Must be requested
	// explicitly; it trades loss for latency.
	PolicyDropOldest
)

// DefaultCapacity is used when a Link is constructed with capacity <= 0.
const DefaultCapacity = 16

// Link is a bounded FIFO channel between one producer port and one
// consumer port. It guarantees per-link FIFO order and no duplication.
type Link struct {
	From dataflow.NodeId
	To   dataflow.NodeId

	FromPort dataflow.PortId
	ToPort   dataflow.PortId

	policy Policy
	ch     chan dataflow.Message
	closed atomic.Bool

	sent     atomic.Uint64
	received atomic.Uint64
	dropped  atomic.Uint64
}

// Option configures a Link at construction time.
type Option func(*Link)

// WithPolicy overrides the default PolicyBlock congestion policy.
func WithPolicy(p Policy) Option {
	return func(l *Link) { l.policy = p }
}

// New constructs a Link with the given buffer capacity (DefaultCapacity if
// capacity <= 0) between the named endpoints.
func New(from dataflow.NodeId, fromPort dataflow.PortId, to dataflow.NodeId, toPort dataflow.PortId, capacity int, opts ...Option) *Link {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Link{
		From:     from,
		To:       to,
		FromPort: fromPort,
		ToPort:   toPort,
		ch:       make(chan dataflow.Message, capacity),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Send publishes msg on the link. Under PolicyBlock it suspends until
// buffer space is available or ctx is done; under PolicyDropOldest it
// never blocks, evicting the oldest buffered message instead.
//
// Send on a closed link returns errs.ErrPortDisconnected.
func (l *Link) Send(ctx context.Context, msg dataflow.Message) error {
	if l.closed.Load() {
		return errs.ErrPortDisconnected
	}

	switch l.policy {
	case PolicyDropOldest:
		for {
			select {
			case l.ch <- msg:
				l.sent.Add(1)
				return nil
			default:
			}
			select {
			case <-l.ch:
				l.dropped.Add(1)
			default:
			}
		}
	default: // PolicyBlock
		select {
		case l.ch <- msg:
			l.sent.Add(1)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Receive suspends until a message is available, ctx is done, or the link
// is closed and drained (errs.ErrEndOfStream).
func (l *Link) Receive(ctx context.Context) (dataflow.Message, error) {
	select {
	case msg, ok := <-l.ch:
		if !ok {
			return dataflow.Message{}, errs.ErrEndOfStream
		}
		l.received.Add(1)
		return msg, nil
	case <-ctx.Done():
		return dataflow.Message{}, ctx.Err()
	}
}

// Close marks the link closed; idempotent. Buffered messages remain
// receivable until drained, after which Receive returns ErrEndOfStream.
func (l *Link) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.ch)
	}
}

// Stats reports the link's lifetime send/receive/drop counters.
type Stats struct {
	Sent     uint64
	Received uint64
	Dropped  uint64
	Buffered int
}

// Stats returns a snapshot of the link's counters.
func (l *Link) Stats() Stats {
	return Stats{
		Sent:     l.sent.Load(),
		Received: l.received.Load(),
		Dropped:  l.dropped.Load(),
		Buffered: len(l.ch),
	}
}
