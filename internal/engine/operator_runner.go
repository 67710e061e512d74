package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"firestige.xyz/otusflow/internal/errs"
	"firestige.xyz/otusflow/internal/link"
	"firestige.xyz/otusflow/internal/runtime"
	"firestige.xyz/otusflow/pkg/dataflow"
	"firestige.xyz/otusflow/pkg/node"
)

// arrival is one message landing on one input port, or the port's
// terminal EndOfStream/cancellation signal.
type arrival struct {
	port dataflow.PortId
	msg  dataflow.Message
	err  error
}

// OperatorRunner drives one operator's firing cycle (spec §4.3): the
// WaitTokens -> Evaluate -> Gather -> Run -> OutputRule -> Dispatch ->
// Commit loop. Exactly one instance of {InputRule, Run, OutputRule} is
// ever in flight at a time (P2), since they are all invoked serially from
// this loop's single goroutine.
type OperatorRunner struct {
	atomicState

	ID            dataflow.NodeId
	Impl          node.Operator
	Config        node.Config
	Endpoints     Endpoints
	LocalDeadline time.Duration
	RuntimeCtx    *runtime.Context
	Metrics       *Metrics

	watermark *WatermarkTracker
	killed    atomic.Bool
}

// NewOperatorRunner constructs a runner ready for Run.
func NewOperatorRunner(id dataflow.NodeId, impl node.Operator, cfg node.Config, ep Endpoints, localDeadline time.Duration, rtCtx *runtime.Context) *OperatorRunner {
	return &OperatorRunner{
		ID: id, Impl: impl, Config: cfg, Endpoints: ep,
		LocalDeadline: localDeadline, RuntimeCtx: rtCtx, Metrics: &Metrics{},
		watermark: NewWatermarkTracker(),
	}
}

// Kill marks the runner so that the next time Run observes ctx being
// cancelled, it skips Finalize entirely (spec §4.7 kill semantics).
func (r *OperatorRunner) Kill() { r.killed.Store(true) }

// Watermark exposes the operator's per-input-port watermark tracker for
// Instance.Watermark.
func (r *OperatorRunner) Watermark() *WatermarkTracker { return r.watermark }

// Run executes the firing loop until ctx is cancelled, the operator
// drains (all inputs reach EndOfStream or all outputs disconnect), or a
// user callback errors (the node faults, per spec §7, and stops firing).
// On any non-killed exit after a successful Initialize, Finalize is called
// exactly once (P7); a failed Initialize returns without calling Finalize.
func (r *OperatorRunner) Run(ctx context.Context) error {
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

	tokens := make(map[dataflow.PortId]*dataflow.Token, len(r.Endpoints.Inputs))
	closedPorts := make(map[dataflow.PortId]bool, len(r.Endpoints.Inputs))
	for port := range r.Endpoints.Inputs {
		tok := dataflow.NewPendingToken()
		tokens[port] = &tok
	}

	arrivals := make(chan arrival, len(tokens)+1)
	inFlight := make(map[dataflow.PortId]bool, len(tokens))

	finish := func(faulted bool, cause error) error {
		if r.killed.Load() {
			r.set(StateKilled)
			return cause
		}
		r.set(StateStopping)
		ferr := r.Impl.Finalize(state)
		for _, fanout := range r.Endpoints.Outputs {
			for _, l := range fanout {
				l.Close() // cascade EndOfStream to every downstream consumer
			}
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

		anyOpen := false
		for port, l := range r.Endpoints.Inputs {
			if closedPorts[port] {
				continue
			}
			anyOpen = true
			if tokens[port].IsReady() || inFlight[port] {
				continue
			}
			inFlight[port] = true
			go func(port dataflow.PortId, l *link.Link) {
				msg, rerr := l.Receive(ctx)
				select {
				case arrivals <- arrival{port: port, msg: msg, err: rerr}:
				case <-ctx.Done():
				}
			}(port, l)
		}
		if len(tokens) > 0 && !anyOpen {
			return finish(false, nil) // every input reached EndOfStream
		}

		// allReady gates the blocking wait on whether every still-open port
		// has a Ready token, not merely whether any one of them does: an
		// InputRule that requires several ports Ready (e.g. DefaultInputRule
		// with >=2 inputs) would otherwise be re-invoked every iteration
		// once the first port goes Ready, spinning at 100% CPU while it
		// waits for the rest.
		allReady := true
		for port, tok := range tokens {
			if closedPorts[port] {
				continue
			}
			if !tok.IsReady() {
				allReady = false
				break
			}
		}
		if len(tokens) > 0 && !allReady {
			select {
			case a := <-arrivals:
				inFlight[a.port] = false
				if a.err != nil {
					if a.err == errs.ErrEndOfStream {
						closedPorts[a.port] = true
					}
					continue // spurious wake (ctx cancel mid-receive) or EOS: re-loop
				}
				switch {
				case a.msg.IsData():
					tok := dataflow.NewReadyToken(a.msg)
					tokens[a.port] = &tok
				case a.msg.IsWatermark():
					r.watermark.Observe(a.port, a.msg.Watermark)
				case a.msg.IsControl():
					if a.msg.Control == dataflow.ControlEndOfStream || a.msg.Control == dataflow.ControlCancel {
						closedPorts[a.port] = true
					}
				}
			case <-ctx.Done():
				return finish(false, nil)
			}
			continue // re-enter Evaluate only once a token actually changed state
		}

		fire, err := r.Impl.InputRule(r.RuntimeCtx, state, tokens)
		if err != nil {
			return finish(true, errs.NewUserError(string(r.ID), "input_rule", err))
		}

		if !fire {
			applyNonFiringActions(tokens, r.Metrics)
			continue
		}

		inputs := make(map[dataflow.PortId]dataflow.Message, len(tokens))
		firingStartReal := time.Now()
		firingStartTS := r.RuntimeCtx.HLC.Now()
		for port, tok := range tokens {
			if !tok.IsReady() {
				continue
			}
			switch tok.Action {
			case dataflow.Consume:
				inputs[port] = tok.Message
				fresh := dataflow.NewPendingToken()
				tokens[port] = &fresh
			case dataflow.Keep:
				r.Metrics.Kept.Add(1)
			case dataflow.Drop:
				r.Metrics.Dropped.Add(1)
				fresh := dataflow.NewPendingToken()
				tokens[port] = &fresh
			}
		}

		if len(inputs) == 0 {
			continue // every ready token was Kept or Dropped: no run this cycle (P4)
		}
		r.Metrics.Fired.Add(1)

		outputs, err := r.Impl.Run(r.RuntimeCtx, state, inputs)
		if err != nil {
			return finish(true, errs.NewUserError(string(r.ID), "run", err))
		}

		var miss *dataflow.LocalDeadlineMiss
		observed := time.Since(firingStartReal)
		if r.LocalDeadline > 0 && observed > r.LocalDeadline {
			miss = &dataflow.LocalDeadlineMiss{
				Start:      firingStartTS,
				End:        r.RuntimeCtx.HLC.Now(),
				Configured: r.LocalDeadline,
				Observed:   observed,
			}
			r.Metrics.DeadlineMisses.Add(1)
		}

		nodeOutputs, err := r.Impl.OutputRule(r.RuntimeCtx, state, outputs, miss)
		if err != nil {
			return finish(true, errs.NewUserError(string(r.ID), "output_rule", err))
		}

		for port := range r.Endpoints.Outputs {
			out, ok := nodeOutputs[port]
			if !ok {
				continue // omitted port: no emission this cycle
			}
			dispatchToPort(&r.Endpoints, port, func(l *link.Link) error {
				ts := r.RuntimeCtx.HLC.Now()
				msg := messageFromOutput(out, ts)
				if serr := l.Send(ctx, msg); serr != nil {
					return serr
				}
				r.Metrics.Dispatched.Add(1)
				return nil
			})
		}
		if len(r.Endpoints.Outputs) > 0 && totalOutputLinks(&r.Endpoints) == 0 {
			return finish(false, nil) // all downstream disconnected: draining
		}
	}
}

// applyNonFiringActions handles the Evaluate=false branch (spec §4.3
// step 2): a token the rule marked Drop is discarded and reset to
// Pending even though the cycle never fires; Keep and untouched Consume
// tokens remain Ready for the next Evaluate.
func applyNonFiringActions(tokens map[dataflow.PortId]*dataflow.Token, m *Metrics) {
	for port, tok := range tokens {
		if !tok.IsReady() || tok.Action != dataflow.Drop {
			continue
		}
		m.Dropped.Add(1)
		fresh := dataflow.NewPendingToken()
		tokens[port] = &fresh
	}
}

// messageFromOutput builds the freshly-timestamped wire Message dispatched
// for one NodeOutput (spec §4.3 step 7).
func messageFromOutput(out dataflow.NodeOutput, ts dataflow.Timestamp) dataflow.Message {
	switch out.Kind {
	case dataflow.OutputControl:
		return dataflow.NewControlMessage(out.Control)
	case dataflow.OutputWatermark:
		return dataflow.NewWatermarkMessage(ts)
	default:
		return dataflow.NewDataMessage(out.Payload, ts)
	}
}
