package event

import (
	"runtime/debug"
	"sync"
)

// Handler receives a published event.
type Handler func(topic Topic, payload any)

// PanicHandler is called when a subscriber panics during publish.
// It receives the topic, the panic value, and the stack at the panic point.
type PanicHandler func(topic Topic, panicValue any, stack []byte)

// Subscription identifies a registered handler so it can be removed.
type Subscription uint64

type subscriber struct {
	id      Subscription
	topic   Topic
	prefix  bool
	handler Handler
}

// Bus is a synchronous publish/subscribe event bus.
// All methods are safe for concurrent use.
type Bus struct {
	mu      sync.RWMutex
	nextID  Subscription
	subs    []subscriber
	onPanic PanicHandler
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithPanicHandler sets the handler invoked when a subscriber panics.
func WithPanicHandler(h PanicHandler) BusOption {
	return func(b *Bus) {
		b.onPanic = h
	}
}

// NewBus creates a new event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for an exact topic.
func (b *Bus) Subscribe(topic Topic, h Handler) Subscription {
	return b.add(topic, false, h)
}

// SubscribePrefix registers a handler for a topic and all of its children.
func (b *Bus) SubscribePrefix(prefix Topic, h Handler) Subscription {
	return b.add(prefix, true, h)
}

func (b *Bus) add(topic Topic, prefix bool, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscriber{
		id:      b.nextID,
		topic:   topic,
		prefix:  prefix,
		handler: h,
	})
	return b.nextID
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the payload to every matching subscriber in registration
// order. A panicking subscriber is recovered; remaining subscribers still run.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	matched := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.matches(topic) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		b.dispatch(s, topic, payload)
	}
}

func (b *Bus) dispatch(s subscriber, topic Topic, payload any) {
	defer func() {
		if r := recover(); r != nil {
			if b.onPanic != nil {
				b.onPanic(topic, r, debug.Stack())
			}
		}
	}()
	s.handler(topic, payload)
}

func (s subscriber) matches(topic Topic) bool {
	if s.prefix {
		return topic.HasPrefix(s.topic)
	}
	return s.topic == topic
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
