package source

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/internal/domain"
	"reflex/internal/infra/logger"
	"reflex/internal/infra/queue"
	"reflex/internal/usecase/eventbus"
	"reflex/internal/usecase/scheduling"
)

func startedScheduler(t *testing.T) *scheduling.Scheduler {
	t.Helper()
	s := scheduling.NewScheduler(logger.Discard())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func runAsync(ctx context.Context, src domain.Source) <-chan error {
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop")
		return nil
	}
}

func TestPeriodicSendsUntilDisconnected(t *testing.T) {
	sched := startedScheduler(t)
	tx, rx := queue.New[int]()

	var n atomic.Int32
	p := NewPeriodic("ticker", 10*time.Millisecond, sched, tx, func() int { return int(n.Add(1)) })
	assert.Equal(t, "ticker", p.Name())
	done := runAsync(context.Background(), p)

	for want := 1; want <= 3; want++ {
		select {
		case v := <-rx.C():
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("no tick")
		}
	}

	rx.Close()
	require.NoError(t, waitErr(t, done))
	assert.Equal(t, 0, sched.Len())
}

func TestPeriodicStopsOnCancel(t *testing.T) {
	sched := startedScheduler(t)
	tx, rx := queue.New[int]()
	defer rx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, NewPeriodic("slow", time.Hour, sched, tx, func() int { return 0 }))

	assert.Eventually(t, func() bool { return sched.Len() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, waitErr(t, done))
	assert.Equal(t, 0, sched.Len())
}

func TestPeriodicDuplicateName(t *testing.T) {
	sched := startedScheduler(t)
	tx, rx := queue.New[int]()
	defer rx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := runAsync(ctx, NewPeriodic("dup", time.Hour, sched, tx, func() int { return 0 }))
	assert.Eventually(t, func() bool { return sched.Len() == 1 }, time.Second, 5*time.Millisecond)

	err := NewPeriodic("dup", time.Hour, sched, tx, func() int { return 0 }).Run(ctx)
	assert.Error(t, err)

	cancel()
	require.NoError(t, waitErr(t, first))
}

type stubSource struct {
	name string
	err  error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Run(context.Context) error { return s.err }

func TestGroupWaitCollectsErrors(t *testing.T) {
	bus := eventbus.New(logger.Discard())

	var mu sync.Mutex
	stopped := map[string]string{}
	bus.Subscribe(domain.EventSourceStopped, func(_ context.Context, e domain.Event) {
		p := e.PayloadMap()
		mu.Lock()
		stopped[p["source"]] = p["error"]
		mu.Unlock()
	})

	g := NewGroup(logger.Discard(), bus, "run")
	g.Go(context.Background(), stubSource{name: "ok"})
	g.Go(context.Background(), stubSource{name: "bad", err: assert.AnError})

	errs := g.Wait()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], assert.AnError)

	bus.Close()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]string{"ok": "", "bad": assert.AnError.Error()}, stopped)
}

func TestWithReleaseRunsAfterStop(t *testing.T) {
	var released atomic.Bool
	src := WithRelease(stubSource{name: "s", err: assert.AnError}, func() { released.Store(true) })

	assert.Equal(t, "s", src.Name())
	assert.ErrorIs(t, src.Run(context.Background()), assert.AnError)
	assert.True(t, released.Load())
}
