// Package translator resolves commands emitted by a model into feedback
// messages, off the dispatcher's goroutine.
package translator

import (
	"context"
	"fmt"
	"log/slog"

	"reflex/internal/domain"
	"reflex/internal/infra/logger"
)

// Translator converts commands into messages. It holds no state of its own.
type Translator struct {
	logger *slog.Logger
	bus    domain.EventBus
	runID  string
}

// New creates a translator. bus may be nil.
func New(l *slog.Logger, bus domain.EventBus, runID string) *Translator {
	return &Translator{
		logger: logger.ForRun(l, "translator", "", runID),
		bus:    bus,
		runID:  runID,
	}
}

// Run receives commands until the channel is exhausted, converting each with
// IntoMessage and sending any resulting message to messages. It returns nil
// when commands is closed (the dispatcher is gone) or when messages reports
// domain.ErrDisconnected (the model's receiver is gone); both are ordinary
// shutdown. Any other send error is returned.
func Run[M any, C domain.Command[M]](t *Translator, commands <-chan C, messages domain.Sink[M]) error {
	for cmd := range commands {
		msg, ok := cmd.IntoMessage()
		if !ok {
			t.logger.Debug("command discarded", "command", fmt.Sprintf("%T", cmd))
			t.publish(domain.EventCommandDiscarded, cmd)
			continue
		}

		if err := messages.Send(msg); err != nil {
			if domain.IsShutdown(err) {
				t.logger.Debug("message receiver gone, translator exiting")
				return nil
			}
			return domain.WrapOp("Translator.Run", err)
		}
		t.logger.Debug("command translated", "command", fmt.Sprintf("%T", cmd), "message", fmt.Sprintf("%T", msg))
		t.publish(domain.EventCommandTranslated, cmd)
	}
	t.logger.Debug("command channel exhausted, translator exiting")
	return nil
}

func (t *Translator) publish(et domain.EventType, cmd any) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(context.Background(), domain.NewEvent(et, t.runID, map[string]string{
		"command": fmt.Sprintf("%T", cmd),
	}))
}
