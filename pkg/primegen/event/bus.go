package event

import (
	"sync"
)

// Handler processes one event. Handlers run on the publishing goroutine and
// should return quickly; a slow handler stalls the generation loop.
type Handler func(Event)

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe()
}

// Bus fans events out to subscribers, synchronously and in subscription
// order. Safe for concurrent Subscribe/Publish, though the engine publishes
// from a single control goroutine.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID int
}

type subscription struct {
	id      int
	types   map[Type]struct{} // nil = all types
	handler Handler
	bus     *Bus
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for the given event types.
// An empty types list subscribes to all events.
func (b *Bus) Subscribe(types []Type, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{id: b.nextID, handler: handler, bus: b}
	b.nextID++
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	b.subs = append(b.subs, sub)
	return sub
}

// SubscribeAll registers a handler for every event.
func (b *Bus) SubscribeAll(handler Handler) Subscription {
	return b.Subscribe(nil, handler)
}

// Publish delivers evt to every matching subscriber before returning.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.types != nil {
			if _, ok := sub.types[evt.Type]; !ok {
				continue
			}
		}
		sub.handler(evt)
	}
}

// Unsubscribe implements Subscription.
func (s *subscription) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == s.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
