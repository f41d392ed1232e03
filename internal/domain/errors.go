package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	// ErrDisconnected is returned by a queue send once the receiver is gone.
	ErrDisconnected = fmt.Errorf("queue receiver disconnected")
	// ErrCommandSinkClosed means the path from the dispatcher to the command
	// translator is gone. It is fatal for the dispatcher.
	ErrCommandSinkClosed = fmt.Errorf("command sink closed")
	// ErrSourcesExhausted means every producer feeding the dispatcher has
	// stopped, so no further event can ever arrive.
	ErrSourcesExhausted = fmt.Errorf("all event sources exhausted")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrUnknownModel     = fmt.Errorf("unknown model")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Dispatcher.Run")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsShutdown reports whether err is an expected shutdown signal rather than
// a failure. Producers and the translator exit silently on these.
func IsShutdown(err error) bool {
	return errors.Is(err, ErrDisconnected)
}

// ErrorCode is a machine-parseable error category for logs and exit reporting.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeDisconnected      ErrorCode = "DISCONNECTED"
	CodeCommandSinkClosed ErrorCode = "COMMAND_SINK_CLOSED"
	CodeSourcesExhausted  ErrorCode = "SOURCES_EXHAUSTED"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeUnknownModel      ErrorCode = "UNKNOWN_MODEL"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrDisconnected:      CodeDisconnected,
	ErrCommandSinkClosed: CodeCommandSinkClosed,
	ErrSourcesExhausted:  CodeSourcesExhausted,
	ErrConfigLoad:        CodeConfigLoad,
	ErrUnknownModel:      CodeUnknownModel,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It walks the error chain with errors.Is. Returns CodeUnknown if no
// matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
