// Package event provides a simple publish-subscribe event bus for decoupled communication.
package event

import (
	"context"
	"sync"
)

// Wildcard subscribes a handler to every event name.
const Wildcard = "*"

// Event is a named notification with an arbitrary payload.
type Event struct {
	Name string
	Data any
}

// Handler is a function that handles an event.
type Handler func(ctx context.Context, ev Event)

// EventBus defines the interface for an event system.
type EventBus interface {
	Subscribe(name string, handler Handler) (unsubscribe func())
	Publish(ctx context.Context, name string, data any)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus represents the event bus.
type Bus struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers map[string][]subscription
	sync        bool
}

// Option configures a Bus.
type Option func(*Bus)

// Synchronous makes Publish run handlers on the publishing goroutine.
func Synchronous() Option {
	return func(b *Bus) { b.sync = true }
}

// New creates a new event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[string][]subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe adds a handler for a specific event, or for all events when name
// is Wildcard. The returned function removes the handler.
func (b *Bus) Subscribe(name string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers[name] = append(b.subscribers[name], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[name]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish triggers all handlers subscribed to the event.
func (b *Bus) Publish(ctx context.Context, name string, data any) {
	b.mu.RLock()
	subs := append([]subscription{}, b.subscribers[name]...) // copy to avoid race
	if name != Wildcard {
		subs = append(subs, b.subscribers[Wildcard]...)
	}
	b.mu.RUnlock()

	ev := Event{Name: name, Data: data}
	for _, s := range subs {
		if b.sync {
			s.handler(ctx, ev)
			continue
		}
		go s.handler(ctx, ev)
	}
}
