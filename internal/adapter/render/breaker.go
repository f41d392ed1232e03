package render

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"reflex/internal/domain"
)

// Default breaker settings.
const (
	defaultMaxFailures uint32        = 5
	defaultCooldown    time.Duration = 30 * time.Second
)

// BreakerConfig configures Guarded.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive render failures that opens
	// the breaker.
	MaxFailures uint32
	// Cooldown is how long the breaker stays open before one probe render
	// is allowed through.
	Cooldown time.Duration
}

// Guarded wraps a renderer with a circuit breaker. While the breaker is open,
// views are dropped without touching the output, so a dead terminal costs
// one failed write per cooldown instead of one per event.
type Guarded struct {
	inner   domain.Renderer
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewGuarded wraps inner. Zero config values select the defaults.
func NewGuarded(inner domain.Renderer, name string, cfg BreakerConfig, logger *slog.Logger) *Guarded {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = defaultCooldown
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "render:" + name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("render breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &Guarded{inner: inner, breaker: cb}
}

// Render implements domain.Renderer.
func (g *Guarded) Render(view string) error {
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, g.inner.Render(view)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("output suspended: %w", err)
	}
	return err
}

// State returns the breaker state.
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}
