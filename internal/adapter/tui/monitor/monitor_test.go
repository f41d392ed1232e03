package monitor

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/internal/domain"
	"reflex/internal/infra/logger"
	"reflex/internal/infra/queue"
	"reflex/internal/usecase/eventbus"
)

func TestEventGateUnlimited(t *testing.T) {
	g := newEventGate(0, 0)
	for i := 0; i < 100; i++ {
		_, ok := g.admit(domain.NewEvent(domain.EventInputApplied, "r", nil))
		assert.True(t, ok)
	}
	assert.Zero(t, g.dropped.Load())
}

func TestEventGateDropsOverBurst(t *testing.T) {
	// One event per hour: only the burst gets through.
	g := newEventGate(1.0/3600, 2)

	passed := 0
	for i := 0; i < 5; i++ {
		if _, ok := g.admit(domain.NewEvent(domain.EventInputApplied, "r", nil)); ok {
			passed++
		}
	}
	assert.Equal(t, 2, passed)
	assert.Equal(t, uint64(3), g.dropped.Load())

	msg, ok := g.admit(domain.NewEvent(domain.EventDispatcherStarted, "r", map[string]string{"model": "cursor"}))
	assert.True(t, ok, "lifecycle events bypass the limit")
	assert.Equal(t, uint64(3), msg.Dropped)
}

func TestEventMsgUpdatesDropped(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, EventMsg{Event: domain.NewEvent(domain.EventInputApplied, "r", nil), Dropped: 4})
	assert.Contains(t, m.View(), "4 dropped")
}

func headless() Option {
	return WithProgramOptions(
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
}

func TestEventsPublishedBeforeRunAreShown(t *testing.T) {
	bus := eventbus.New(logger.Discard())
	defer bus.Close()

	tx, rx := queue.New[domain.Input]()
	defer rx.Close()

	mon := New(tx, domain.InputTokens{}, bus, logger.Discard(), headless())

	// The sequence starts before the program runs.
	bus.Publish(context.Background(), domain.NewEvent(domain.EventDispatcherStarted, "run-1", map[string]string{"model": "counter"}))

	go func() {
		time.Sleep(100 * time.Millisecond)
		mon.Finish(nil)
	}()

	done := make(chan error, 1)
	go func() { done <- mon.Run() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not exit")
	}

	assert.True(t, mon.final.Done())
	assert.Equal(t, "run-1", mon.final.status.RunID)
	assert.Equal(t, "counter", mon.final.active)
}
