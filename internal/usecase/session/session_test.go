package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/internal/adapter/model/counter"
	"reflex/internal/adapter/model/cursor"
	"reflex/internal/domain"
	"reflex/internal/infra/logger"
	"reflex/internal/usecase/scheduling"
	"reflex/internal/usecase/source"
)

type views struct {
	mu  sync.Mutex
	out []string
}

func (v *views) Render(s string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.out = append(v.out, s)
	return nil
}

func (v *views) get() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.out...)
}

func counterStep(r *Runner, m *counter.Model, rend domain.Renderer, producers ...Producer[counter.Message]) Step {
	return Step{Name: "counter", Run: func(ctx context.Context, inputs <-chan domain.Input) error {
		return Run[counter.Message, counter.Command](ctx, r, inputs, Spec[counter.Message, counter.Command]{
			Name: "counter", Model: m, Producers: producers, Renderer: rend,
		})
	}}
}

func cursorStep(r *Runner, m *cursor.Model, rend domain.Renderer) Step {
	return Step{Name: "cursor", Run: func(ctx context.Context, inputs <-chan domain.Input) error {
		return Run[cursor.Message, cursor.Command](ctx, r, inputs, Spec[cursor.Message, cursor.Command]{
			Name: "cursor", Model: m, Renderer: rend,
		})
	}}
}

func TestSequenceSharesInputs(t *testing.T) {
	r := NewRunner(logger.Discard(), nil)
	cv, uv := &views{}, &views{}

	inputs := make(chan domain.Input, 8)
	for _, in := range []domain.Input{
		domain.Increment(), domain.Increment(), domain.Quit(),
		domain.Other("a"), domain.Increment(), domain.Quit(),
	} {
		inputs <- in
	}

	err := RunSequence(context.Background(), inputs, []Step{
		counterStep(r, counter.New(), cv),
		cursorStep(r, cursor.New(0), uv),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, cv.get())
	assert.Equal(t, []string{"a", "b"}, uv.get())
}

func TestFeedbackLoopThroughSession(t *testing.T) {
	r := NewRunner(logger.Discard(), nil)
	rendered := make(chan string, 8)
	rend := domain.RendererFunc(func(v string) error {
		rendered <- v
		return nil
	})

	inputs := make(chan domain.Input)
	done := make(chan error, 1)
	m := counter.New(counter.WithStart(4), counter.WithCoin(func() bool { return true }))
	go func() {
		done <- RunSequence(context.Background(), inputs, []Step{counterStep(r, m, rend)})
	}()

	inputs <- domain.Increment()
	for _, want := range []string{"5", "6"} {
		select {
		case got := <-rendered:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("no view %q", want)
		}
	}
	inputs <- domain.Quit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sequence did not finish")
	}
}

func TestProducersFeedModelAndStop(t *testing.T) {
	sched := scheduling.NewScheduler(logger.Discard())
	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	r := NewRunner(logger.Discard(), nil)
	rendered := make(chan string, 64)
	rend := domain.RendererFunc(func(v string) error {
		rendered <- v
		return nil
	})

	decrement := func(sink domain.Sink[counter.Message]) domain.Source {
		return source.NewPeriodic("counter.auto-decrement", 10*time.Millisecond, sched, sink, counter.DecrementMessage)
	}

	inputs := make(chan domain.Input)
	done := make(chan error, 1)
	go func() {
		done <- RunSequence(context.Background(), inputs, []Step{counterStep(r, counter.New(counter.WithTrigger(-100)), rend, decrement)})
	}()

	for _, want := range []string{"-1", "-2"} {
		select {
		case got := <-rendered:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("no view %q", want)
		}
	}
	inputs <- domain.Quit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sequence did not finish")
	}
	assert.Equal(t, 0, sched.Len())
}

func TestSequenceStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Run: func(context.Context, <-chan domain.Input) error {
			ran = append(ran, name)
			return err
		}}
	}

	err := RunSequence(context.Background(), nil, []Step{step("a", nil), step("b", boom), step("c", nil)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sequence b")
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestSequenceHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := RunSequence(ctx, nil, []Step{{Name: "a", Run: func(context.Context, <-chan domain.Input) error {
		called = true
		return nil
	}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
