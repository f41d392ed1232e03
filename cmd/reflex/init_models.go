package main

import (
	"context"

	"reflex/internal/adapter/model/counter"
	"reflex/internal/adapter/model/cursor"
	"reflex/internal/domain"
	"reflex/internal/infra/config"
	"reflex/internal/usecase/session"
	"reflex/internal/usecase/source"
)

// buildSteps turns the configured sequence into runnable steps. Each step
// builds a fresh model when it starts, so a model listed twice starts over.
func buildSteps(rt *runtime, rendererFor func(model string) (domain.Renderer, error)) ([]session.Step, error) {
	steps := make([]session.Step, 0, len(rt.cfg.Sequence))
	for _, name := range rt.cfg.Sequence {
		r, err := rendererFor(name)
		if err != nil {
			return nil, err
		}
		switch name {
		case config.ModelCounter:
			steps = append(steps, counterStep(rt, r))
		case config.ModelCursor:
			steps = append(steps, cursorStep(rt, r))
		default:
			return nil, domain.NewDomainError("buildSteps", domain.ErrUnknownModel, name)
		}
	}
	return steps, nil
}

func counterStep(rt *runtime, r domain.Renderer) session.Step {
	cc := rt.cfg.Counter

	var producers []session.Producer[counter.Message]
	if cc.DecrementEvery > 0 {
		producers = append(producers, func(sink domain.Sink[counter.Message]) domain.Source {
			return source.NewPeriodic("counter.auto-decrement", cc.DecrementEvery, rt.scheduler, sink, counter.DecrementMessage)
		})
	}
	if cc.RandomizeEvery > 0 {
		producers = append(producers, func(sink domain.Sink[counter.Message]) domain.Source {
			return source.NewPeriodic("counter.randomize", cc.RandomizeEvery, rt.scheduler, sink,
				counter.Randomizer(cc.RandomizeMin, cc.RandomizeMax, nil))
		})
	}

	return session.Step{
		Name: config.ModelCounter,
		Run: func(ctx context.Context, inputs <-chan domain.Input) error {
			m := counter.New(counter.WithStart(cc.Start), counter.WithTrigger(cc.Trigger))
			return session.Run[counter.Message, counter.Command](ctx, rt.runner, inputs, session.Spec[counter.Message, counter.Command]{
				Name:      config.ModelCounter,
				Model:     m,
				Producers: producers,
				Renderer:  r,
			})
		},
	}
}

func cursorStep(rt *runtime, r domain.Renderer) session.Step {
	start := rt.cfg.Cursor.Start
	return session.Step{
		Name: config.ModelCursor,
		Run: func(ctx context.Context, inputs <-chan domain.Input) error {
			return session.Run[cursor.Message, cursor.Command](ctx, rt.runner, inputs, session.Spec[cursor.Message, cursor.Command]{
				Name:     config.ModelCursor,
				Model:    cursor.NewFromString(start),
				Renderer: r,
			})
		},
	}
}
