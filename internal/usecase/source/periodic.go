package source

import (
	"context"
	"time"

	"reflex/internal/domain"
	"reflex/internal/usecase/scheduling"
)

// Periodic sends next() to sink on every tick of a scheduler task. It stops
// for good the first time the sink reports a disconnect.
type Periodic[T any] struct {
	name      string
	every     time.Duration
	scheduler *scheduling.Scheduler
	sink      domain.Sink[T]
	next      func() T
}

// NewPeriodic creates a periodic source. The task is registered on sched
// when Run is called; sched must be started for ticks to fire.
func NewPeriodic[T any](name string, every time.Duration, sched *scheduling.Scheduler, sink domain.Sink[T], next func() T) *Periodic[T] {
	return &Periodic[T]{
		name:      name,
		every:     every,
		scheduler: sched,
		sink:      sink,
		next:      next,
	}
}

// Name implements domain.Source.
func (p *Periodic[T]) Name() string { return p.name }

// Run registers the task and blocks until the task is removed or ctx is
// cancelled. The first value is sent one interval after Run starts.
func (p *Periodic[T]) Run(ctx context.Context) error {
	done, err := p.scheduler.AddTask(scheduling.ScheduledTask{
		Name:     p.name,
		Schedule: p.every.String(),
		Run: func(context.Context) error {
			return p.sink.Send(p.next())
		},
	})
	if err != nil {
		return domain.WrapOp("Periodic.Run", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		_ = p.scheduler.RemoveTask(p.name)
	}
	return nil
}
