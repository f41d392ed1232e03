// Package uxerror translates run errors into user-facing messages with
// recovery hints for the monitor TUI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"reflex/internal/adapter/tui/theme"
	"reflex/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Input Closed"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Render formats the FriendlyError for display.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	{
		match: isErr(domain.ErrSourcesExhausted),
		produce: constantError("Event Sources Exhausted",
			"Both the input stream and the model's message stream ended before the model quit.",
			[]string{"End input with the quit token instead of closing it", "Check the producer intervals in config"}),
	},
	{
		match: isErr(domain.ErrCommandSinkClosed),
		produce: constantError("Command Channel Closed",
			"The model emitted a command but nothing was listening for it.",
			[]string{"This is a wiring bug; run with REFLEX_LOGGER_LEVEL=debug and report the log"}),
	},
	{
		match: isErr(domain.ErrUnknownModel),
		produce: constantError("Unknown Model",
			"The configured model sequence names a model that does not exist.",
			[]string{"Use counter or cursor in the sequence setting"}),
	},
	{
		match: isErr(domain.ErrConfigLoad),
		produce: constantError("Configuration Error",
			"The configuration file could not be loaded.",
			[]string{"Check the file path and YAML syntax", "Make sure the file is not group or world writable"}),
	},
	{
		match: isErr(domain.ErrDisconnected),
		produce: constantError("Disconnected",
			"A channel between components was closed early.",
			[]string{"Restart reflex"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Run with REFLEX_LOGGER_LEVEL=debug for more details"},
		Raw:     err.Error(),
	}
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
