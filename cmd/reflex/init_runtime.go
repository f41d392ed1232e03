package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reflex/internal/domain"
	"reflex/internal/infra/config"
	"reflex/internal/infra/logger"
	"reflex/internal/infra/tracer"
	"reflex/internal/usecase/eventbus"
	"reflex/internal/usecase/scheduling"
	"reflex/internal/usecase/session"
)

// runtime holds the process-wide collaborators shared by every model run.
type runtime struct {
	cfg       *config.Config
	log       *slog.Logger
	bus       domain.EventBus // nil when events are disabled
	scheduler *scheduling.Scheduler
	runner    *session.Runner
}

func (rt *runtime) tokens() domain.InputTokens {
	return domain.InputTokens{
		Increment: rt.cfg.Console.Increment,
		Decrement: rt.cfg.Console.Decrement,
		Quit:      rt.cfg.Console.Quit,
	}
}

// initRuntime builds the logger, tracer, event bus and scheduler. The
// returned cleanup stops them in reverse order.
func initRuntime(ctx context.Context, cfg *config.Config) (*runtime, func(), error) {
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		logCloser()
		return nil, nil, fmt.Errorf("tracer: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log}

	var bus *eventbus.Bus
	if cfg.Events.Enabled {
		bus = eventbus.New(log)
		bus.SubscribeAll(func(_ context.Context, e domain.Event) {
			log.Debug("event", "type", string(e.Type), "run_id", e.RunID, "payload", string(e.Payload))
		})
		rt.bus = bus
	}

	rt.scheduler = scheduling.NewScheduler(logger.Component(log, "scheduler"))
	if err := rt.scheduler.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("scheduler: %w", err)
	}
	rt.runner = session.NewRunner(log, rt.bus)

	cleanup := func() {
		if err := rt.scheduler.Stop(); err != nil {
			log.Error("scheduler stop error", "error", err)
		}
		if bus != nil {
			bus.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			log.Error("tracer shutdown error", "error", err)
		}
		logCloser()
	}
	return rt, cleanup, nil
}
