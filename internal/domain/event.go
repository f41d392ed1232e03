package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event being published.
type EventType string

const (
	EventDispatcherStarted EventType = "dispatcher.started"
	EventDispatcherStopped EventType = "dispatcher.stopped"
	EventDispatcherFailed  EventType = "dispatcher.failed"
	EventInputApplied      EventType = "event.input.applied"
	EventMessageApplied    EventType = "event.message.applied"
	EventViewRendered      EventType = "view.rendered"
	EventCommandForwarded  EventType = "command.forwarded"
	EventCommandTranslated EventType = "command.translated"
	EventCommandDiscarded  EventType = "command.discarded"
	EventSourceStopped     EventType = "source.stopped"
)

// Event is the envelope published on the event bus. It describes what the
// dispatcher and its collaborators did; it never carries model state.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RunID     string          `json:"run_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event stamped with a fresh ID and the current time.
// payload is JSON-encoded; a nil payload is omitted.
func NewEvent(t EventType, runID string, payload map[string]string) Event {
	e := Event{ID: NewID(), Type: t, Timestamp: time.Now(), RunID: runID}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			e.Payload = raw
		}
	}
	return e
}

// PayloadMap decodes the payload as a string map. Returns an empty map when
// the payload is absent or not a string map.
func (e Event) PayloadMap() map[string]string {
	var m map[string]string
	if e.Payload != nil {
		_ = json.Unmarshal(e.Payload, &m)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for lifecycle events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
