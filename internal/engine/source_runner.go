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

// SourceRunner drives one source's loop (spec §4.4): call Run, timestamp
// the result, fan it out to every link on the sole output port, repeat.
type SourceRunner struct {
	atomicState

	ID         dataflow.NodeId
	Impl       node.Source
	Config     node.Config
	OutputPort dataflow.PortId
	Links      []*link.Link
	RuntimeCtx *runtime.Context
	Metrics    *Metrics

	killed atomic.Bool
}

func NewSourceRunner(id dataflow.NodeId, impl node.Source, cfg node.Config, outputPort dataflow.PortId, links []*link.Link, rtCtx *runtime.Context) *SourceRunner {
	return &SourceRunner{
		ID: id, Impl: impl, Config: cfg, OutputPort: outputPort,
		Links: links, RuntimeCtx: rtCtx, Metrics: &Metrics{},
	}
}

func (r *SourceRunner) Kill() { r.killed.Store(true) }

// Run calls Impl.Run repeatedly until ctx is cancelled or every downstream
// link disconnects, fanning each produced message out to all live links.
func (r *SourceRunner) Run(ctx context.Context) error {
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
		for _, l := range r.Links {
			l.Close() // cascade EndOfStream to every downstream consumer
		}
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
		if len(r.Links) == 0 {
			return finish(false, nil) // draining: nothing left to publish to
		}

		payload, err := r.Impl.Run(r.RuntimeCtx, state)
		if err != nil {
			return finish(true, errs.NewUserError(string(r.ID), "run", err))
		}
		r.Metrics.Fired.Add(1)
		r.fanOut(ctx, dataflow.NewDataMessage(payload, r.RuntimeCtx.HLC.Now()))

		if wsrc, ok := r.Impl.(node.WatermarkSource); ok {
			if _, emit := wsrc.Watermark(r.RuntimeCtx, state); emit {
				r.fanOut(ctx, dataflow.NewWatermarkMessage(r.RuntimeCtx.HLC.Now()))
			}
		}
	}
}

// fanOut sends msg to every live downstream link, pruning any that report
// PortDisconnected from the fan-out list.
func (r *SourceRunner) fanOut(ctx context.Context, msg dataflow.Message) {
	live := r.Links[:0]
	for _, l := range r.Links {
		if err := l.Send(ctx, msg); err != nil {
			if err != errs.ErrPortDisconnected {
				live = append(live, l) // ctx cancelled mid-send: keep it so finish closes it
			}
			continue
		}
		r.Metrics.Dispatched.Add(1)
		live = append(live, l)
	}
	r.Links = live
}
