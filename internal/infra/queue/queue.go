// Package queue provides an unbounded multi-producer, single-consumer queue
// whose receiving end is a plain Go channel, so it can take part in select.
//
// Sends never block. A send fails with domain.ErrDisconnected once the
// receiver has been closed. The receive channel is closed after every sender
// handle has been closed and the buffer has drained.
package queue

import (
	"sync"
	"sync/atomic"

	"reflex/internal/domain"
)

type state[T any] struct {
	mu      sync.Mutex
	items   []T
	senders int
	closed  bool // receiver gone

	wake chan struct{}
	done chan struct{}
	out  chan T
}

// New creates a queue and returns its first sender handle and its receiver.
func New[T any]() (*Sender[T], *Receiver[T]) {
	s := &state[T]{
		senders: 1,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		out:     make(chan T),
	}
	go s.pump()
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

// pump moves buffered items onto out in FIFO order. It is the only writer of
// out, which is what makes per-queue ordering hold across many senders.
func (s *state[T]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.items) == 0 {
			if s.closed || s.senders == 0 {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			select {
			case <-s.wake:
			case <-s.done:
			}
			s.mu.Lock()
		}
		v := s.items[0]
		var zero T
		s.items[0] = zero
		s.items = s.items[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-s.done:
			return
		}
	}
}

func (s *state[T]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Sender is one producer's handle on a queue. Handles are safe for concurrent
// use; create more producers with Clone.
type Sender[T any] struct {
	s      *state[T]
	closed atomic.Bool
}

var _ domain.Sink[int] = (*Sender[int])(nil)

// Send enqueues v without blocking. It returns domain.ErrDisconnected if the
// receiver is closed or this handle has been closed.
func (q *Sender[T]) Send(v T) error {
	if q.closed.Load() {
		return domain.ErrDisconnected
	}
	s := q.s
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrDisconnected
	}
	s.items = append(s.items, v)
	s.mu.Unlock()
	s.signal()
	return nil
}

// Clone returns a new sender handle for the same queue. Cloning a closed
// handle yields a closed handle.
func (q *Sender[T]) Clone() *Sender[T] {
	c := &Sender[T]{s: q.s}
	if q.closed.Load() {
		c.closed.Store(true)
		return c
	}
	q.s.mu.Lock()
	q.s.senders++
	q.s.mu.Unlock()
	return c
}

// Close releases this handle. Once every handle is closed the receiver sees
// the queue as exhausted after draining. Close is idempotent.
func (q *Sender[T]) Close() {
	if q.closed.Swap(true) {
		return
	}
	q.s.mu.Lock()
	q.s.senders--
	q.s.mu.Unlock()
	q.s.signal()
}

// Receiver is the single consuming end of a queue.
type Receiver[T any] struct {
	s    *state[T]
	once sync.Once
}

// C returns the channel values are delivered on. It is closed once all
// senders are closed and the buffer is drained, or after Close.
func (r *Receiver[T]) C() <-chan T {
	return r.s.out
}

// Recv blocks for the next value. ok is false when the queue is exhausted.
func (r *Receiver[T]) Recv() (v T, ok bool) {
	v, ok = <-r.s.out
	return v, ok
}

// Len reports the number of values buffered and not yet handed to C.
func (r *Receiver[T]) Len() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.items)
}

// Close disconnects the receiver. Pending values are discarded and every
// subsequent Send fails with domain.ErrDisconnected. Close is idempotent.
func (r *Receiver[T]) Close() {
	r.once.Do(func() {
		r.s.mu.Lock()
		r.s.closed = true
		r.s.items = nil
		r.s.mu.Unlock()
		close(r.s.done)
	})
}
