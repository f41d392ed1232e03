package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/internal/adapter/model/counter"
	"reflex/internal/domain"
	"reflex/internal/infra/logger"
	"reflex/internal/infra/queue"
	"reflex/internal/usecase/eventbus"
	"reflex/internal/usecase/translator"
)

// probe is a model that records every event it applies. Messages are plain
// strings; "die" kills it, "emit" emits a command.
type probe struct {
	applied []string
	views   int
}

type probeCmd struct{ msg string }

func (c probeCmd) IntoMessage() (string, bool) { return c.msg, c.msg != "" }

func (p *probe) FromInput(in domain.Input) string {
	if in.Kind == domain.InputQuit {
		return "die"
	}
	return "in:" + in.String()
}

func (p *probe) Update(msg string) domain.StateChange[probeCmd] {
	p.applied = append(p.applied, msg)
	switch msg {
	case "die":
		return domain.Dead[probeCmd]()
	case "emit":
		return domain.AliveWith(probeCmd{msg: "echo"})
	}
	return domain.Alive[probeCmd]()
}

func (p *probe) View() string {
	p.views++
	return strings.Join(p.applied, ",")
}

type recorder struct {
	mu    sync.Mutex
	views []string
}

func (r *recorder) Render(view string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
	return nil
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.views...)
}

type discardSink[T any] struct{}

func (discardSink[T]) Send(T) error { return nil }

func inputsOf(in ...domain.Input) chan domain.Input {
	ch := make(chan domain.Input, len(in))
	for _, v := range in {
		ch <- v
	}
	return ch
}

func runCounter(t *testing.T, m *counter.Model, inputs <-chan domain.Input, messages <-chan counter.Message, commands domain.Sink[counter.Command], opts ...Option) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	opts = append([]Option{WithLogger(logger.Discard()), WithName("counter")}, opts...)
	go func() {
		done <- Run[counter.Message, counter.Command](m, inputs, messages, commands, opts...)
	}()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not return")
		return nil
	}
}

func nextView(t *testing.T, views <-chan string) string {
	t.Helper()
	select {
	case v := <-views:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no view rendered")
		return ""
	}
}

func TestCounterScript(t *testing.T) {
	rec := &recorder{}
	inputs := inputsOf(domain.Increment(), domain.Increment(), domain.Decrement(), domain.Quit())
	messages := make(chan counter.Message)

	err := waitErr(t, runCounter(t, counter.New(), inputs, messages, discardSink[counter.Command]{}, WithRenderer(rec)))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "1"}, rec.get())
}

func TestQuitFirstRendersNothing(t *testing.T) {
	rec := &recorder{}
	inputs := inputsOf(domain.Quit())
	messages := make(chan counter.Message)

	err := waitErr(t, runCounter(t, counter.New(), inputs, messages, discardSink[counter.Command]{}, WithRenderer(rec)))
	require.NoError(t, err)
	assert.Empty(t, rec.get())
}

func TestOtherPlaceholderClearedByIncrement(t *testing.T) {
	rec := &recorder{}
	inputs := inputsOf(domain.Other("hello"), domain.Increment(), domain.Quit())

	err := waitErr(t, runCounter(t, counter.New(), inputs, make(chan counter.Message), discardSink[counter.Command]{}, WithRenderer(rec)))
	require.NoError(t, err)
	assert.Equal(t, []string{counter.Placeholder, "1"}, rec.get())
}

func TestRenderCountMatchesAppliedEvents(t *testing.T) {
	p := &probe{}
	rec := &recorder{}
	inputs := inputsOf(domain.Increment(), domain.Other("a"), domain.Decrement(), domain.Quit())
	messages := make(chan string, 3)
	messages <- "m1"
	messages <- "m2"
	messages <- "m3"
	close(messages)

	// Quit may be picked before some messages; whatever was applied before it
	// must have been rendered exactly once.
	err := Run[string, probeCmd](p, inputs, messages, discardSink[probeCmd]{}, WithRenderer(rec), WithLogger(logger.Discard()))
	require.NoError(t, err)

	require.NotEmpty(t, p.applied)
	assert.Equal(t, "die", p.applied[len(p.applied)-1])
	assert.Len(t, rec.get(), len(p.applied)-1)
	assert.Equal(t, len(p.applied)-1, p.views)
}

func TestEmittedCommandIsForwarded(t *testing.T) {
	p := &probe{}
	tx, rx := queue.New[probeCmd]()
	defer rx.Close()

	messages := make(chan string, 2)
	messages <- "emit"
	messages <- "die"

	err := Run[string, probeCmd](p, make(chan domain.Input), messages, tx, WithLogger(logger.Discard()))
	require.NoError(t, err)

	cmd, ok := rx.Recv()
	require.True(t, ok)
	assert.Equal(t, probeCmd{msg: "echo"}, cmd)
}

func TestClosedCommandSinkIsFatal(t *testing.T) {
	rec := &recorder{}
	tx, rx := queue.New[counter.Command]()
	rx.Close()

	inputs := inputsOf(domain.Increment(), domain.Quit())
	err := waitErr(t, runCounter(t, counter.New(counter.WithStart(4)), inputs, make(chan counter.Message), tx, WithRenderer(rec)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCommandSinkClosed)
	assert.Equal(t, domain.CodeCommandSinkClosed, domain.ErrorCodeOf(err))
	assert.Empty(t, rec.get())
}

func TestBothSourcesExhausted(t *testing.T) {
	rec := &recorder{}
	inputs := inputsOf(domain.Increment())
	close(inputs)
	messages := make(chan counter.Message, 1)
	messages <- counter.RandomizeMsg{N: 9}
	close(messages)

	err := waitErr(t, runCounter(t, counter.New(), inputs, messages, discardSink[counter.Command]{}, WithRenderer(rec)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourcesExhausted)
	assert.Len(t, rec.get(), 2)
}

func TestClosedInputKeepsServingMessages(t *testing.T) {
	rec := &recorder{}
	inputs := make(chan domain.Input)
	close(inputs)

	messages := make(chan counter.Message)
	done := runCounter(t, counter.New(), inputs, messages, discardSink[counter.Command]{}, WithRenderer(rec))

	messages <- counter.RandomizeMsg{N: 8}
	messages <- counter.DecrementMessage()
	messages <- counter.InputMsg{Input: domain.Quit()}

	require.NoError(t, waitErr(t, done))
	assert.Equal(t, []string{"8", "7"}, rec.get())
}

func TestClosedMessagesKeepsServingInputs(t *testing.T) {
	rec := &recorder{}
	messages := make(chan counter.Message)
	close(messages)

	inputs := make(chan domain.Input)
	done := runCounter(t, counter.New(), inputs, messages, discardSink[counter.Command]{}, WithRenderer(rec))

	inputs <- domain.Decrement()
	inputs <- domain.Quit()

	require.NoError(t, waitErr(t, done))
	assert.Equal(t, []string{"-1"}, rec.get())
}

func TestFeedbackLoopIncrementsPastTrigger(t *testing.T) {
	views := make(chan string, 16)
	renderer := domain.RendererFunc(func(v string) error {
		views <- v
		return nil
	})

	msgTx, msgRx := queue.New[counter.Message]()
	cmdTx, cmdRx := queue.New[counter.Command]()
	defer msgRx.Close()

	tr := translator.New(logger.Discard(), nil, "test")
	trDone := make(chan error, 1)
	go func() { trDone <- translator.Run[counter.Message, counter.Command](tr, cmdRx.C(), msgTx) }()

	inputs := make(chan domain.Input)
	m := counter.New(counter.WithStart(4), counter.WithCoin(func() bool { return true }))
	done := runCounter(t, m, inputs, msgRx.C(), cmdTx, WithRenderer(renderer))

	inputs <- domain.Increment()
	assert.Equal(t, "5", nextView(t, views))
	assert.Equal(t, "6", nextView(t, views))

	inputs <- domain.Quit()
	require.NoError(t, waitErr(t, done))

	cmdTx.Close()
	require.NoError(t, waitErr(t, trDone))
}

func TestFeedbackLoopDiscardedCommand(t *testing.T) {
	views := make(chan string, 16)
	renderer := domain.RendererFunc(func(v string) error {
		views <- v
		return nil
	})

	msgTx, msgRx := queue.New[counter.Message]()
	cmdTx, cmdRx := queue.New[counter.Command]()
	defer msgRx.Close()

	tr := translator.New(logger.Discard(), nil, "test")
	trDone := make(chan error, 1)
	go func() { trDone <- translator.Run[counter.Message, counter.Command](tr, cmdRx.C(), msgTx) }()

	inputs := make(chan domain.Input)
	m := counter.New(counter.WithStart(4), counter.WithCoin(func() bool { return false }))
	done := runCounter(t, m, inputs, msgRx.C(), cmdTx, WithRenderer(renderer))

	inputs <- domain.Increment()
	assert.Equal(t, "5", nextView(t, views))

	// Closing the command queue lets the translator drain and exit, proving
	// the discarded command produced no message.
	cmdTx.Close()
	require.NoError(t, waitErr(t, trDone))

	inputs <- domain.Quit()
	require.NoError(t, waitErr(t, done))
	assert.Empty(t, views)
}

func TestRenderErrorIsNotFatal(t *testing.T) {
	var calls int
	renderer := domain.RendererFunc(func(string) error {
		calls++
		return errors.New("terminal gone")
	})
	inputs := inputsOf(domain.Increment(), domain.Increment(), domain.Quit())

	err := waitErr(t, runCounter(t, counter.New(), inputs, make(chan counter.Message), discardSink[counter.Command]{}, WithRenderer(renderer)))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNoSourceStarves(t *testing.T) {
	const n = 1000
	inputs := make(chan domain.Input, n)
	messages := make(chan string, n)
	for i := 0; i < n; i++ {
		inputs <- domain.Increment()
		messages <- "m"
	}

	p := &starveProbe{limit: n}
	err := Run[string, probeCmd](p, inputs, messages, discardSink[probeCmd]{}, WithLogger(logger.Discard()))
	require.NoError(t, err)

	// With both channels always ready, a uniform pick makes either count
	// falling below n/10 astronomically unlikely.
	assert.Greater(t, p.fromInputs, n/10)
	assert.Greater(t, p.fromMessages, n/10)
}

type starveProbe struct {
	limit        int
	fromInputs   int
	fromMessages int
}

func (p *starveProbe) FromInput(domain.Input) string { return "input" }

func (p *starveProbe) Update(msg string) domain.StateChange[probeCmd] {
	if msg == "input" {
		p.fromInputs++
	} else {
		p.fromMessages++
	}
	if p.fromInputs+p.fromMessages >= p.limit {
		return domain.Dead[probeCmd]()
	}
	return domain.Alive[probeCmd]()
}

func (p *starveProbe) View() string { return "" }

func TestPublishesLifecycleEvents(t *testing.T) {
	bus := eventbus.New(logger.Discard())

	var mu sync.Mutex
	var got []domain.Event
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	inputs := inputsOf(domain.Increment(), domain.Quit())
	err := waitErr(t, runCounter(t, counter.New(), inputs, make(chan counter.Message), discardSink[counter.Command]{},
		WithEventBus(bus), WithRunID("run-1")))
	require.NoError(t, err)
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	types := make([]domain.EventType, 0, len(got))
	for _, e := range got {
		types = append(types, e.Type)
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, "counter", e.PayloadMap()["model"])
	}
	assert.Equal(t, []domain.EventType{
		domain.EventDispatcherStarted,
		domain.EventInputApplied,
		domain.EventViewRendered,
		domain.EventInputApplied,
		domain.EventDispatcherStopped,
	}, types)
	assert.Equal(t, "1", got[2].PayloadMap()["view"])
}

func TestNewOptionsDefaults(t *testing.T) {
	o := newOptions(nil)
	assert.Equal(t, "model", o.name)
	assert.NotEmpty(t, o.runID)
	assert.NotNil(t, o.logger)
	assert.NoError(t, o.renderer.Render("x"))
}
