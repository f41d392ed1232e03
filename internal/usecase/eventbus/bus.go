package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"reflex/internal/domain"
	"reflex/internal/infra/queue"
)

// subscription owns a private queue drained by one worker goroutine, so a
// subscriber sees events in publish order and a slow subscriber never blocks
// the publisher.
type subscription struct {
	id      uint64
	handler domain.EventHandler
	tx      *queue.Sender[delivery]
}

type delivery struct {
	ctx   context.Context
	event domain.Event
}

// Bus is an in-process, goroutine-safe event bus.
type Bus struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]*subscription
	allSubs []*subscription
	nextID  atomic.Uint64
	logger  *slog.Logger
	wg      sync.WaitGroup
	closed  atomic.Bool
}

var _ domain.EventBus = (*Bus)(nil)

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		typed:  make(map[domain.EventType][]*subscription),
		logger: logger,
	}
}

// Publish fans out an event to matching typed subscribers and all-event
// subscribers. It never blocks. Panicking handlers are recovered.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.typed[event.Type] {
		_ = sub.tx.Send(delivery{ctx: ctx, event: event})
	}
	for _, sub := range b.allSubs {
		_ = sub.tx.Send(delivery{ctx: ctx, event: event})
	}
}

func (b *Bus) start(handler domain.EventHandler) *subscription {
	tx, rx := queue.New[delivery]()
	sub := &subscription{id: b.nextID.Add(1), handler: handler, tx: tx}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for d := range rx.C() {
			b.deliver(sub, d)
		}
	}()
	return sub
}

func (b *Bus) deliver(sub *subscription, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(d.event.Type),
				"subscription", sub.id,
				"panic", r,
			)
		}
	}()
	sub.handler(d.ctx, d.event)
}

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	b.mu.Lock()
	// Checked under mu: Close sets closed before taking mu, so a
	// subscription added here is always seen and closed by Close.
	if b.closed.Load() {
		b.mu.Unlock()
		return func() {}
	}
	sub := b.start(handler)
	b.typed[eventType] = append(b.typed[eventType], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		subs := b.typed[eventType]
		for i, s := range subs {
			if s.id == sub.id {
				b.typed[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		sub.tx.Close()
	}
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return func() {}
	}
	sub := b.start(handler)
	b.allSubs = append(b.allSubs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		for i, s := range b.allSubs {
			if s.id == sub.id {
				b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		sub.tx.Close()
	}
}

// Close prevents new publishes and waits for every subscriber to drain the
// events already published. Close is idempotent and safe to call multiple times.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}

	b.mu.Lock()
	for _, subs := range b.typed {
		for _, s := range subs {
			s.tx.Close()
		}
	}
	for _, s := range b.allSubs {
		s.tx.Close()
	}
	b.mu.Unlock()

	b.wg.Wait()
}
