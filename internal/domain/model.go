package domain

// Command is an abstract side-effect request emitted by Model.Update and
// resolved off the dispatcher by the command translator. IntoMessage may be
// non-deterministic; ok=false means the command produced no message.
type Command[M any] interface {
	IntoMessage() (msg M, ok bool)
}

// Model is a pluggable state machine driven by the dispatcher.
//
// M is the model's message type and C its command type. A Model is owned by
// exactly one dispatcher for its whole lifetime and is never accessed
// concurrently, so implementations need no locking.
type Model[M any, C Command[M]] interface {
	// FromInput converts a boundary Input into a model message. It must be
	// total and must not depend on model state.
	FromInput(Input) M
	// Update applies one message and reports whether the model survives.
	// Update must handle every message without panicking.
	Update(M) StateChange[C]
	// View renders the current state. It has no side effects.
	View() string
}

// StateChange is the outcome of one Model.Update call: either Alive with an
// optional command, or Dead.
type StateChange[C any] struct {
	dead       bool
	command    C
	hasCommand bool
}

// Alive reports a surviving transition without a command.
func Alive[C any]() StateChange[C] {
	return StateChange[C]{}
}

// AliveWith reports a surviving transition that requests command c.
func AliveWith[C any](c C) StateChange[C] {
	return StateChange[C]{command: c, hasCommand: true}
}

// Dead reports a terminal transition. No state is reachable afterwards.
func Dead[C any]() StateChange[C] {
	return StateChange[C]{dead: true}
}

// IsDead reports whether the transition was terminal.
func (s StateChange[C]) IsDead() bool { return s.dead }

// Command returns the requested command, if any. A Dead change never carries
// a command.
func (s StateChange[C]) Command() (C, bool) {
	if s.dead {
		var zero C
		return zero, false
	}
	return s.command, s.hasCommand
}

func (s StateChange[C]) String() string {
	switch {
	case s.dead:
		return "dead"
	case s.hasCommand:
		return "alive+command"
	default:
		return "alive"
	}
}
