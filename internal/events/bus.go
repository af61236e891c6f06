package events

import (
	"strings"
	"sync"
)

// Topics published by trackit components.
const (
	TopicTasksChanged   = "tasks.changed"
	TopicHabitsChanged  = "habits.changed"
	TopicSessionStarted = "session.started"
	TopicSessionExpired = "session.expired"
)

// Event is a message published on the bus.
type Event struct {
	Topic   string
	Payload any
}

// Handler receives events for a subscription.
type Handler func(Event)

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(topic string, payload any)
}

// Subscription represents an active subscription.
type Subscription struct {
	id      int
	prefix  string
	handler Handler
}

// Prefix returns the topic prefix this subscription matches.
func (s *Subscription) Prefix() string {
	return s.prefix
}

// Bus is an in-process pub/sub bus with topic prefix matching.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*Subscription
	nextID int
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*Subscription)}
}

// Subscribe registers handler for every topic starting with prefix.
// An empty prefix matches all topics.
func (b *Bus) Subscribe(prefix string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, prefix: prefix, handler: handler}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscription. Removing twice is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
}

// Publish delivers an event synchronously to all matching subscribers.
// Handlers run outside the bus lock and may subscribe or publish themselves.
func (b *Bus) Publish(topic string, payload any) {
	event := Event{Topic: topic, Payload: payload}

	b.mu.RLock()
	matched := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.prefix == "" || strings.HasPrefix(topic, sub.prefix) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		if sub.handler != nil {
			sub.handler(event)
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
