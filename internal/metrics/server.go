// Package metrics implements the metrics HTTP server and the collector
// that polls a running Instance's counters onto the Prometheus series
// declared in metrics.go.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"firestige.xyz/otusflow/internal/instance"
)

// pollInterval is how often the collector copies an Instance's atomic
// counters into the package's promauto Vecs.
const pollInterval = 2 * time.Second

// Server is the HTTP server exposing /metrics, plus the background
// collector that keeps the Prometheus series current.
type Server struct {
	addr string
	path string
	inst *instance.Instance

	server *http.Server
	cancel context.CancelFunc
}

// NewServer builds a metrics Server that polls inst every pollInterval.
func NewServer(addr, path string, inst *instance.Instance) *Server {
	if path == "" {
		path = "/metrics"
	}
	return &Server{addr: addr, path: path, inst: inst}
}

// Start launches the HTTP listener and the background collector; both run
// until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.Handler())

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.pollLoop(pollCtx)

	slog.Info("starting metrics server", "addr", s.addr, "path", s.path)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP listener and the collector.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}
	slog.Info("metrics server stopped")
	return nil
}

func (s *Server) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collect()
		}
	}
}

func (s *Server) collect() {
	for _, id := range s.inst.GetNodes() {
		snap, ok := s.inst.NodeMetricsSnapshot(id)
		if !ok {
			continue
		}
		label := string(id)
		NodeFired.WithLabelValues(label).Set(float64(snap.Fired))
		NodeDropped.WithLabelValues(label).Set(float64(snap.Dropped))
		NodeKept.WithLabelValues(label).Set(float64(snap.Kept))
		NodeDeadlineMisses.WithLabelValues(label).Set(float64(snap.DeadlineMisses))
		NodeFaults.WithLabelValues(label).Set(float64(snap.Faults))
		NodeDispatched.WithLabelValues(label).Set(float64(snap.Dispatched))
	}

	for _, l := range s.inst.Links() {
		stats := l.Stats()
		from, to := string(l.From), string(l.To)
		LinkBufferedMessages.WithLabelValues(from, to).Set(float64(stats.Buffered))
		LinkDropped.WithLabelValues(from, to).Set(float64(stats.Dropped))
	}
}
