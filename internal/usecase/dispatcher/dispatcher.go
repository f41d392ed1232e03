// Package dispatcher drives a single Model from two multiplexed event
// channels.
//
// Each iteration blocks once, in a select over the input channel and the
// model's message channel, applies exactly one event through Model.Update,
// forwards any emitted command to the command sink and renders the model's
// view. A Dead outcome ends the run without rendering. When both channels
// have a value ready the runtime picks one uniformly at random, so neither
// source is prioritized and neither can starve the other.
package dispatcher

import (
	"context"
	"fmt"

	"reflex/internal/domain"
	"reflex/internal/infra/tracer"
)

const (
	sourceInput   = "input"
	sourceMessage = "message"
)

// Run drives model until it reports Dead, then returns nil.
//
// Run owns model for its whole duration and never touches it from another
// goroutine. inputs and messages may be closed independently; a closed
// channel is simply no longer selected. If both are closed no event can ever
// arrive and Run returns domain.ErrSourcesExhausted. A command that cannot be
// forwarded because the sink is closed is fatal: Run returns an error wrapping
// domain.ErrCommandSinkClosed.
func Run[M any, C domain.Command[M]](
	model domain.Model[M, C],
	inputs <-chan domain.Input,
	messages <-chan M,
	commands domain.Sink[C],
	opts ...Option,
) error {
	l := &loop[M, C]{
		model:    model,
		inputs:   inputs,
		messages: messages,
		commands: commands,
		opts:     newOptions(opts),
	}
	return l.run()
}

type loop[M any, C domain.Command[M]] struct {
	model    domain.Model[M, C]
	inputs   <-chan domain.Input
	messages <-chan M
	commands domain.Sink[C]
	opts     options
}

func (l *loop[M, C]) run() (err error) {
	ctx, span := tracer.StartRun(context.Background(), l.opts.name, l.opts.runID)
	defer func() { tracer.End(span, err) }()

	log := l.opts.logger
	log.Info("dispatcher started")
	l.opts.publish(ctx, domain.EventDispatcherStarted, 0, nil)

	for iteration := 1; ; iteration++ {
		change, source, ok := l.next(ctx, iteration)
		if !ok {
			err = domain.NewDomainError("Dispatcher.Run", domain.ErrSourcesExhausted, l.opts.name)
			log.Error("dispatcher stopped: no event source left", "iterations", iteration-1)
			l.opts.publish(ctx, domain.EventDispatcherFailed, iteration, map[string]string{"error": err.Error()})
			return err
		}

		if change.IsDead() {
			log.Info("dispatcher stopped", "reason", "dead", "source", source, "iterations", iteration)
			l.opts.publish(ctx, domain.EventDispatcherStopped, iteration, map[string]string{"source": source})
			return nil
		}

		if cmd, ok := change.Command(); ok {
			if sendErr := l.commands.Send(cmd); sendErr != nil {
				err = domain.NewDomainError("Dispatcher.Run", domain.ErrCommandSinkClosed,
					fmt.Sprintf("forward command %T: %v", cmd, sendErr))
				log.Error("command sink closed", "iteration", iteration, "error", sendErr)
				l.opts.publish(ctx, domain.EventDispatcherFailed, iteration, map[string]string{"error": err.Error()})
				return err
			}
			log.Debug("command forwarded", "iteration", iteration, "command", fmt.Sprintf("%T", cmd))
			l.opts.publish(ctx, domain.EventCommandForwarded, iteration, map[string]string{"command": fmt.Sprintf("%T", cmd)})
		}

		l.render(ctx, iteration)
	}
}

// next blocks until one event is available on either channel and applies it.
// ok is false once both channels are closed.
func (l *loop[M, C]) next(ctx context.Context, iteration int) (change domain.StateChange[C], source string, ok bool) {
	for {
		if l.inputs == nil && l.messages == nil {
			return change, "", false
		}

		select {
		case in, open := <-l.inputs:
			if !open {
				l.inputs = nil
				l.opts.logger.Debug("input channel exhausted")
				continue
			}
			return l.apply(ctx, iteration, sourceInput, in.String(), func() domain.StateChange[C] {
				return l.model.Update(l.model.FromInput(in))
			}), sourceInput, true

		case msg, open := <-l.messages:
			if !open {
				l.messages = nil
				l.opts.logger.Debug("message channel exhausted")
				continue
			}
			return l.apply(ctx, iteration, sourceMessage, fmt.Sprintf("%T", msg), func() domain.StateChange[C] {
				return l.model.Update(msg)
			}), sourceMessage, true
		}
	}
}

func (l *loop[M, C]) apply(ctx context.Context, iteration int, source, detail string, update func() domain.StateChange[C]) domain.StateChange[C] {
	ctx, span := tracer.StartApply(ctx, source, iteration)
	change := update()
	tracer.EndApply(span, change.String())

	l.opts.logger.Debug("event applied", "iteration", iteration, "source", source, "event", detail, "state", change.String())
	eventType := domain.EventInputApplied
	if source == sourceMessage {
		eventType = domain.EventMessageApplied
	}
	l.opts.publish(ctx, eventType, iteration, map[string]string{"event": detail, "state": change.String()})
	return change
}

func (l *loop[M, C]) render(ctx context.Context, iteration int) {
	view := l.model.View()
	if err := l.opts.renderer.Render(view); err != nil {
		l.opts.logger.Warn("render failed", "iteration", iteration, "error", err)
		return
	}
	l.opts.publish(ctx, domain.EventViewRendered, iteration, map[string]string{"view": view})
}
