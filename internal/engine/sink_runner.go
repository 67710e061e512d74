package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/internal/link"
	"firestige.xyz/otusflow/internal/runtime"
	"firestige.xyz/otusflow/pkg/dataflow"
	"firestige.xyz/otusflow/pkg/node"
)

// SinkRunner drives one sink's loop (spec §4.5): receive the next message
// on the sole input port; Data messages are handed to Impl.Run, Watermark
// and Control messages are bookkeeping only.
type SinkRunner struct {
	atomicState

	ID         dataflow.NodeId
	Impl       node.Sink
	Config     node.Config
	Link       *link.Link
	RuntimeCtx *runtime.Context
	Metrics    *Metrics

	watermark *WatermarkTracker
	killed    atomic.Bool
}

func NewSinkRunner(id dataflow.NodeId, impl node.Sink, cfg node.Config, l *link.Link, rtCtx *runtime.Context) *SinkRunner {
	return &SinkRunner{ID: id, Impl: impl, Config: cfg, Link: l, RuntimeCtx: rtCtx, Metrics: &Metrics{}, watermark: NewWatermarkTracker()}
}

func (r *SinkRunner) Kill() { r.killed.Store(true) }

// LastWatermark returns the most recent watermark observed on the input
// link, for embedders that want to inspect sink progress.
func (r *SinkRunner) LastWatermark() dataflow.Timestamp { return r.watermark.Combined() }

// Watermark exposes the sink's tracker for Instance.Watermark.
func (r *SinkRunner) Watermark() *WatermarkTracker { return r.watermark }

func (r *SinkRunner) Run(ctx context.Context) error {
	r.set(StateCreated)
	r.set(StateStarting)
	state, err := r.Impl.Initialize(r.Config)
	if err != nil {
		r.set(StateFaulted)
		r.Metrics.Faults.Add(1)
		slog.Error("node faulted", "node", string(r.ID), "phase", "initialize", "err", err)
		return errs.NewUserError(string(r.ID), "initialize", err)
	}
	r.set(StateRunning)

	finish := func(faulted bool, cause error) error {
		if r.killed.Load() {
			r.set(StateKilled)
			return cause
		}
		r.set(StateStopping)
		ferr := r.Impl.Finalize(state)
		if faulted {
			r.set(StateFaulted)
			r.Metrics.Faults.Add(1)
			slog.Error("node faulted", "node", string(r.ID), "err", cause)
		} else {
			r.set(StateStopped)
		}
		if cause != nil {
			return cause
		}
		return errs.NewUserError(string(r.ID), "finalize", ferr)
	}

	for {
		if ctx.Err() != nil {
			return finish(false, nil)
		}

		msg, err := r.Link.Receive(ctx)
		if err != nil {
			if err == errs.ErrEndOfStream {
				return finish(false, nil)
			}
			return finish(false, nil) // ctx cancellation surfaced through Receive
		}

		switch {
		case msg.IsData():
			if err := r.Impl.Run(r.RuntimeCtx, state, msg); err != nil {
				return finish(true, errs.NewUserError(string(r.ID), "run", err))
			}
			r.Metrics.Fired.Add(1)
		case msg.IsWatermark():
			r.watermark.Observe(r.Link.ToPort, msg.Watermark)
		case msg.IsControl():
			if msg.Control == dataflow.ControlEndOfStream || msg.Control == dataflow.ControlCancel {
				return finish(false, nil)
			}
		}
	}
}
