package events

import (
	"sync"
	"time"
)

// subscriberKey scopes a subscription to one event type and, optionally,
// to a single research session (§6's Event{SessionID, BranchID, Payload}
// shape) — every Publish is matched against both before an event reaches
// a channel, so a session-scoped live-progress display never sees another
// session's noise on a shared Bus.
type subscriberKey struct {
	eventType EventType
	sessionID string // empty matches every session
}

// Bus fans Event values out to interested subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[subscriberKey][]chan Event
	buffer      int
}

// NewBus creates a new event bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	return &Bus{
		subscribers: make(map[subscriberKey][]chan Event),
		buffer:      bufferSize,
	}
}

// Subscribe returns a channel fed every event of the given types across
// every session.
func (b *Bus) Subscribe(types ...EventType) <-chan Event {
	return b.subscribe("", types...)
}

// SubscribeSession returns a channel fed only events of the given types
// whose SessionID matches sessionID — the shape the `run` subcommand's
// live progress display needs when several sessions share one Bus.
func (b *Bus) SubscribeSession(sessionID string, types ...EventType) <-chan Event {
	return b.subscribe(sessionID, types...)
}

func (b *Bus) subscribe(sessionID string, types ...EventType) <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		key := subscriberKey{eventType: t, sessionID: sessionID}
		b.subscribers[key] = append(b.subscribers[key], ch)
	}
	return ch
}

// Publish delivers event to every subscriber whose event type matches and
// whose session scope is either empty (all sessions) or equal to
// event.SessionID.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers[subscriberKey{eventType: event.Type}] {
		deliver(ch, event)
	}
	if event.SessionID != "" {
		for _, ch := range b.subscribers[subscriberKey{eventType: event.Type, sessionID: event.SessionID}] {
			deliver(ch, event)
		}
	}
}

// deliver is non-blocking: a full subscriber buffer drops the event rather
// than stalling the research loop that published it.
func deliver(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
	}
}

// Close shuts down every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	closed := make(map[chan Event]bool)
	for _, channels := range b.subscribers {
		for _, ch := range channels {
			if !closed[ch] {
				close(ch)
				closed[ch] = true
			}
		}
	}
	b.subscribers = make(map[subscriberKey][]chan Event)
}
