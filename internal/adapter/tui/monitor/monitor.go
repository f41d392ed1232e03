package monitor

import (
	"context"
	"log/slog"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"reflex/internal/domain"
	"reflex/internal/infra/logger"
)

// Monitor runs the monitor TUI as a Bubble Tea program.
type Monitor struct {
	logger  *slog.Logger
	program *tea.Program
	gate    *eventGate
	unsub   func()
	final   Model
}

// Option configures a Monitor.
type Option func(*monitorOptions)

type monitorOptions struct {
	program []tea.ProgramOption
	rate    float64
	burst   int
}

// WithProgramOptions replaces the default Bubble Tea program options.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(o *monitorOptions) { o.program = opts }
}

// WithEventRate caps how many bus events per second reach the screen.
// perSec <= 0 disables the cap.
func WithEventRate(perSec float64, burst int) Option {
	return func(o *monitorOptions) {
		o.rate = perSec
		o.burst = burst
	}
}

// New creates a monitor and subscribes it to bus right away, so events
// published before Run are queued and shown once the program starts. bus may
// be nil, in which case no events are shown. Run must be called once New has
// returned.
func New(inputs domain.Sink[domain.Input], tokens domain.InputTokens, bus domain.EventBus, l *slog.Logger, opts ...Option) *Monitor {
	o := monitorOptions{program: []tea.ProgramOption{tea.WithAltScreen()}}
	for _, opt := range opts {
		opt(&o)
	}
	m := &Monitor{
		logger:  logger.Component(l, "monitor"),
		program: tea.NewProgram(NewModel(inputs, tokens), o.program...),
		gate:    newEventGate(o.rate, o.burst),
		unsub:   func() {},
	}
	if bus != nil {
		m.unsub = bus.SubscribeAll(func(_ context.Context, e domain.Event) {
			if msg, ok := m.gate.admit(e); ok {
				m.program.Send(msg)
			}
		})
	}
	return m
}

// Renderer returns a renderer that shows views of the named model. Render
// blocks until the program accepts the view and returns immediately once the
// program has exited.
func (m *Monitor) Renderer(model string) domain.Renderer {
	return domain.RendererFunc(func(view string) error {
		m.program.Send(ViewMsg{Model: model, View: view})
		return nil
	})
}

// Finish tells the monitor the sequence is over. The program exits.
func (m *Monitor) Finish(err error) {
	m.program.Send(DoneMsg{Err: err})
}

// Run blocks until the program exits, forwarding bus events to it meanwhile.
func (m *Monitor) Run() error {
	defer m.unsub()

	m.logger.Debug("monitor started")
	final, err := m.program.Run()
	if fm, ok := final.(Model); ok {
		m.final = fm
	}
	m.logger.Debug("monitor stopped", "error", err, "events_dropped", m.gate.dropped.Load())
	return err
}

// eventGate throttles events on their way to the screen. Dispatcher
// lifecycle events always pass so the active model shown stays correct.
type eventGate struct {
	limiter *rate.Limiter
	dropped atomic.Uint64
}

func newEventGate(perSec float64, burst int) *eventGate {
	limit := rate.Limit(perSec)
	if perSec <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &eventGate{limiter: rate.NewLimiter(limit, burst)}
}

func (g *eventGate) admit(e domain.Event) (EventMsg, bool) {
	switch e.Type {
	case domain.EventDispatcherStarted, domain.EventDispatcherStopped:
	default:
		if !g.limiter.Allow() {
			g.dropped.Add(1)
			return EventMsg{}, false
		}
	}
	return EventMsg{Event: e, Dropped: g.dropped.Load()}, true
}
