package sink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hazyhaar/weaver/bridge"
)

// Router fans records out to every sink. A failing sink does not stop the
// others; failures are logged and the first one is returned.
type Router struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Add appends a sink.
func (r *Router) Add(s Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
}

// Len reports the number of sinks.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

func (r *Router) Send(ctx context.Context, rec bridge.Record) error {
	r.mu.RLock()
	sinks := r.sinks
	r.mu.RUnlock()

	var firstErr error
	for _, s := range sinks {
		if err := s.Send(ctx, rec); err != nil {
			r.logger.Warn("sink: send record failed", "kind", rec.Kind, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	r.mu.Lock()
	sinks := r.sinks
	r.sinks = nil
	r.mu.Unlock()

	var firstErr error
	for _, s := range sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
