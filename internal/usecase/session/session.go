// Package session runs models end to end: one dispatcher per model, fed by
// a shared input channel and by the model's own producers, with a translator
// closing the command feedback loop.
package session

import (
	"context"
	"log/slog"

	"reflex/internal/domain"
	"reflex/internal/infra/logger"
	"reflex/internal/infra/queue"
	"reflex/internal/usecase/dispatcher"
	"reflex/internal/usecase/source"
	"reflex/internal/usecase/translator"
)

// Producer builds a message source for one run, sending on sink.
type Producer[M any] func(sink domain.Sink[M]) domain.Source

// Spec describes one model run.
type Spec[M any, C domain.Command[M]] struct {
	Name      string
	Model     domain.Model[M, C]
	Producers []Producer[M]
	Renderer  domain.Renderer
}

// Runner holds the collaborators shared by every run.
type Runner struct {
	logger *slog.Logger
	bus    domain.EventBus
}

// NewRunner creates a runner. bus may be nil.
func NewRunner(l *slog.Logger, bus domain.EventBus) *Runner {
	return &Runner{logger: l, bus: bus}
}

// Run drives spec.Model until it dies and returns the dispatcher's result.
//
// Every run gets fresh message and command queues. Producers and the
// translator send on clones of the message sender; when the dispatcher
// returns, the message receiver is closed and ctx-derived producers are
// cancelled, so nothing from this run can reach a later one. Run waits for
// its producers and translator before returning. inputs is only read, never
// closed.
func Run[M any, C domain.Command[M]](ctx context.Context, r *Runner, inputs <-chan domain.Input, spec Spec[M, C]) error {
	runID := domain.NewID()
	log := logger.ForRun(r.logger, "session", spec.Name, runID)

	msgTx, msgRx := queue.New[M]()
	cmdTx, cmdRx := queue.New[C]()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	producers := source.NewGroup(r.logger, r.bus, runID)
	for _, build := range spec.Producers {
		sink := msgTx.Clone()
		producers.Go(runCtx, source.WithRelease(build(sink), sink.Close))
	}

	tr := translator.New(r.logger, r.bus, runID)
	trDone := make(chan error, 1)
	go func() {
		defer msgTx.Close()
		trDone <- translator.Run[M, C](tr, cmdRx.C(), msgTx)
	}()

	log.Info("model run started", "producers", len(spec.Producers))
	err := dispatcher.Run[M, C](spec.Model, inputs, msgRx.C(), cmdTx,
		dispatcher.WithName(spec.Name),
		dispatcher.WithRunID(runID),
		dispatcher.WithLogger(r.logger),
		dispatcher.WithRenderer(spec.Renderer),
		dispatcher.WithEventBus(r.bus),
	)

	cmdTx.Close()
	msgRx.Close()
	cancel()

	for _, perr := range producers.Wait() {
		log.Warn("producer error", "error", perr)
	}
	if trErr := <-trDone; trErr != nil {
		log.Warn("translator error", "error", trErr)
	}

	if err != nil {
		log.Error("model run failed", "error", err)
		return err
	}
	log.Info("model run finished")
	return nil
}

// Step is one entry of a sequence.
type Step struct {
	Name string
	Run  func(ctx context.Context, inputs <-chan domain.Input) error
}

// RunSequence runs steps in order on the same input channel. It stops at the
// first failing step and returns its error. A cancelled ctx stops the
// sequence before the next step starts.
func RunSequence(ctx context.Context, inputs <-chan domain.Input, steps []Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Run(ctx, inputs); err != nil {
			return domain.WrapOp("sequence "+step.Name, err)
		}
	}
	return nil
}
