package source

import (
	"context"
	"log/slog"
	"sync"

	"reflex/internal/domain"
	"reflex/internal/infra/logger"
)

// Group runs sources on their own goroutines and waits for them.
type Group struct {
	logger *slog.Logger
	bus    domain.EventBus
	runID  string
	wg     sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewGroup creates a group. bus may be nil.
func NewGroup(l *slog.Logger, bus domain.EventBus, runID string) *Group {
	return &Group{
		logger: logger.ForRun(l, "sources", "", runID),
		bus:    bus,
		runID:  runID,
	}
}

// Go starts src. Its error, if any, is logged and kept for Wait.
func (g *Group) Go(ctx context.Context, src domain.Source) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		err := src.Run(ctx)
		payload := map[string]string{"source": src.Name()}
		if err != nil {
			g.logger.Warn("source failed", "source", src.Name(), "error", err)
			payload["error"] = err.Error()
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		} else {
			g.logger.Debug("source stopped", "source", src.Name())
		}
		if g.bus != nil {
			g.bus.Publish(ctx, domain.NewEvent(domain.EventSourceStopped, g.runID, payload))
		}
	}()
}

// Wait blocks until every started source has returned and reports the
// errors they returned.
func (g *Group) Wait() []error {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]error(nil), g.errs...)
}

// WithRelease wraps src so release runs when src.Run returns. Producers use
// it to close their sender handle once they stop.
func WithRelease(src domain.Source, release func()) domain.Source {
	return releasing{Source: src, release: release}
}

type releasing struct {
	domain.Source
	release func()
}

func (r releasing) Run(ctx context.Context) error {
	defer r.release()
	return r.Source.Run(ctx)
}
