package dispatcher

import (
	"context"
	"log/slog"
	"strconv"

	"reflex/internal/domain"
	"reflex/internal/infra/logger"
)

// Option configures a dispatcher run.
type Option func(*options)

type options struct {
	name     string
	runID    string
	logger   *slog.Logger
	renderer domain.Renderer
	bus      domain.EventBus
}

// WithName labels the run (usually the model name) in logs, spans and events.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithRunID sets the run identifier. A fresh ULID is used otherwise.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRenderer sets the output sink views are written to. Without one,
// views are computed and discarded.
func WithRenderer(r domain.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithEventBus publishes lifecycle events for the run on bus.
func WithEventBus(bus domain.EventBus) Option {
	return func(o *options) { o.bus = bus }
}

func newOptions(opts []Option) options {
	o := options{name: "model"}
	for _, fn := range opts {
		fn(&o)
	}
	if o.runID == "" {
		o.runID = domain.NewID()
	}
	o.logger = logger.ForRun(o.logger, "dispatcher", o.name, o.runID)
	if o.renderer == nil {
		o.renderer = domain.RendererFunc(func(string) error { return nil })
	}
	return o
}

func (o *options) publish(ctx context.Context, t domain.EventType, iteration int, payload map[string]string) {
	if o.bus == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]string, 2)
	}
	payload["model"] = o.name
	if iteration > 0 {
		payload["iteration"] = strconv.Itoa(iteration)
	}
	o.bus.Publish(ctx, domain.NewEvent(t, o.runID, payload))
}
