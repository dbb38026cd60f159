// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package events

import (
	"log/slog"
	"sync"
)

// Sink accepts notifications from the decision engine. Publishing is
// fire-and-forget: the engine never blocks on a slow consumer.
type Sink interface {
	Publish(event Event)
}

// Broadcaster distributes events to subscribers by type.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[Type][]chan Event
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[Type][]chan Event),
	}
}

// Subscribe creates a channel receiving events of the given type.
func (b *Broadcaster) Subscribe(t Type) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100)
	b.subs[t] = append(b.subs[t], ch)
	return ch
}

// Unsubscribe removes a channel and closes it.
func (b *Broadcaster) Unsubscribe(t Type, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[t]
	for i, sub := range subs {
		if sub == ch {
			b.subs[t] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers of its type. If a subscriber's
// buffer is full the event is dropped for that subscriber with a warning;
// denial and authentication decisions never wait on consumers.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.Type] {
		select {
		case ch <- event:
		default:
			slog.Warn("event dropped: subscriber buffer full",
				"event_id", event.ID.String(),
				"event_type", event.Type,
				"username", event.Username,
			)
		}
	}
}

// Compile-time interface check.
var _ Sink = (*Broadcaster)(nil)
