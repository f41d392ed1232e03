// Package source contains the event producers that feed a dispatcher: the
// console reader for boundary inputs and periodic producers for model
// messages.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"reflex/internal/domain"
	"reflex/internal/infra/logger"
)

// Console reads lines from r and sends one Input per line.
//
// Reads cannot be interrupted, so a Console blocked on a quiet reader only
// notices cancellation or a disconnected sink on its next line. Callers run
// it detached and never wait for it.
type Console struct {
	r      io.Reader
	sink   domain.Sink[domain.Input]
	tokens domain.InputTokens
	logger *slog.Logger
}

// NewConsole creates a console source. A zero tokens value selects the
// default tokens.
func NewConsole(r io.Reader, sink domain.Sink[domain.Input], tokens domain.InputTokens, l *slog.Logger) *Console {
	if tokens == (domain.InputTokens{}) {
		tokens = domain.DefaultInputTokens()
	}
	return &Console{
		r:      r,
		sink:   sink,
		tokens: tokens,
		logger: logger.Component(l, "console"),
	}
}

// Name implements domain.Source.
func (c *Console) Name() string { return "console" }

// Run reads until end of input, cancellation or a disconnected sink, all of
// which return nil. A read error is returned. Lines have no length limit.
func (c *Console) Run(ctx context.Context) error {
	br := bufio.NewReader(c.r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if ctx.Err() != nil {
				return nil
			}
			if done, serr := c.send(strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")); done {
				return serr
			}
		}
		if errors.Is(err, io.EOF) {
			c.logger.Debug("end of input, console exiting")
			return nil
		}
		if err != nil {
			return domain.WrapOp("Console.Run", fmt.Errorf("read: %w", err))
		}
	}
}

// send parses and forwards one line. done reports that the console must stop
// and return err.
func (c *Console) send(line string) (done bool, err error) {
	in := c.tokens.Parse(line)
	if err := c.sink.Send(in); err != nil {
		if domain.IsShutdown(err) {
			c.logger.Debug("input receiver gone, console exiting")
			return true, nil
		}
		return true, domain.WrapOp("Console.Run", err)
	}
	c.logger.Debug("input read", "input", in.Kind.String(), "bytes", len(line))
	return false, nil
}
