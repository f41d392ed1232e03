// Package monitor is a Bubble Tea front end for a running model sequence. It
// shows the latest view of the active model and the lifecycle event stream,
// and turns typed lines into boundary inputs.
package monitor

import "reflex/internal/domain"

// ViewMsg carries a view rendered by the active model.
type ViewMsg struct {
	Model string
	View  string
}

// EventMsg wraps a lifecycle event forwarded from the event bus. Dropped is
// the number of events discarded by the rate limit so far.
type EventMsg struct {
	Event   domain.Event
	Dropped uint64
}

// DoneMsg signals that the model sequence has finished. Err is the run's
// fatal error, if any.
type DoneMsg struct {
	Err error
}
