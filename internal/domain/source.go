package domain

import "context"

// Sink is the sending half of a queue. Send never blocks; it fails with
// ErrDisconnected once the receiving side is gone.
type Sink[T any] interface {
	Send(T) error
}

// Source is an independently scheduled producer of events.
//
// Run blocks until the source stops producing. A source whose sink reports
// ErrDisconnected treats that as a shutdown signal and returns nil; the
// dispatcher never sees a stopped source as an error.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// Renderer receives every view produced by a surviving dispatcher iteration.
type Renderer interface {
	Render(view string) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(view string) error

// Render calls f(view).
func (f RendererFunc) Render(view string) error { return f(view) }
