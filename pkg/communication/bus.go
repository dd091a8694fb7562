// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package communication implements the orchestrator's broadcast channel
// (spec.md §4.8, §5): a multi-producer multi-consumer fan-out of runtime
// events to subscribed clients. The channel is lossy for slow subscribers —
// the oldest buffered event is evicted to make room for the newest one, and
// the subscriber is marked lagged so it knows to recover from the
// persistent event log rather than trust the stream it missed a piece of.
package communication

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultBufferCapacity is the default per-subscriber buffer size.
const DefaultBufferCapacity = 256

// EventType identifies a runtime event's place in the typed union spec.md
// §4.8 names (turn_start, text_delta, tool_call, etc).
type EventType string

const (
	EventTurnStart     EventType = "turn_start"
	EventTurnEnd       EventType = "turn_end"
	EventTextDelta     EventType = "text_delta"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventAgentComplete EventType = "agent_complete"
	EventAgentReady    EventType = "agent_ready"
	EventCompactStart  EventType = "compact_start"
	EventCompactEnd    EventType = "compact_end"
	EventSessionEnded  EventType = "session_ended"
	EventNotification  EventType = "notification"
)

// RuntimeEvent is one broadcast message. Payload is whatever shape the
// event type calls for; the envelope itself is type, session, payload and
// a timestamp, matching the client protocol's notification envelope
// (spec.md §6): {type, sessionId, payload, timestamp}.
type RuntimeEvent struct {
	Type      EventType
	SessionID string
	Payload   interface{}
	Timestamp time.Time
}

// subscriber holds one subscription's bounded buffer and wakeup signal.
type subscriber struct {
	mu     sync.Mutex
	buf    []RuntimeEvent
	cap    int
	notify chan struct{}
	lagged atomic.Bool
	closed atomic.Bool
}

func newSubscriber(capacity int) *subscriber {
	return &subscriber{
		buf:    make([]RuntimeEvent, 0, capacity),
		cap:    capacity,
		notify: make(chan struct{}, 1),
	}
}

// push appends event, evicting the oldest buffered event if full. Returns
// true if an eviction occurred.
func (s *subscriber) push(event RuntimeEvent) bool {
	s.mu.Lock()
	evicted := false
	if len(s.buf) >= s.cap {
		s.buf = s.buf[1:]
		evicted = true
		s.lagged.Store(true)
	}
	s.buf = append(s.buf, event)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return evicted
}

// pop removes and returns the oldest buffered event, if any.
func (s *subscriber) pop() (RuntimeEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return RuntimeEvent{}, false
	}
	event := s.buf[0]
	s.buf = s.buf[1:]
	return event, true
}

// Subscription is a live handle returned from Bus.Subscribe. Receive blocks
// until an event is available, ctx is cancelled, or the bus shuts the
// subscription down.
type Subscription struct {
	id  string
	sub *subscriber
	bus *Bus
}

// ID returns the subscription's identifier, stable for its lifetime.
func (s *Subscription) ID() string { return s.id }

// Receive blocks until an event is available or ctx is done.
func (s *Subscription) Receive(ctx context.Context) (RuntimeEvent, error) {
	for {
		if event, ok := s.sub.pop(); ok {
			return event, nil
		}
		if s.sub.closed.Load() {
			return RuntimeEvent{}, fmt.Errorf("communication: subscription %s closed", s.id)
		}
		select {
		case <-ctx.Done():
			return RuntimeEvent{}, ctx.Err()
		case <-s.sub.notify:
		}
	}
}

// Lagged reports whether this subscription has missed at least one event
// since the last call to Lagged, and clears the flag.
func (s *Subscription) Lagged() bool {
	return s.sub.lagged.Swap(false)
}

// Unsubscribe removes the subscription from its bus.
func (s *Subscription) Unsubscribe() {
	s.bus.Unsubscribe(s.id)
}

// Bus is the orchestrator's multi-producer multi-consumer broadcast
// channel. Safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	logger      *zap.Logger
	closed      atomic.Bool

	totalPublished atomic.Int64
	totalDropped   atomic.Int64
}

// NewBus creates an empty broadcast bus. A nil logger defaults to zap's
// no-op logger.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subscribers: make(map[string]*subscriber),
		logger:      logger,
	}
}

// Subscribe registers a new subscription with the given buffer capacity
// (DefaultBufferCapacity if capacity <= 0).
func (b *Bus) Subscribe(capacity int) (*Subscription, error) {
	if b.closed.Load() {
		return nil, fmt.Errorf("communication: bus is closed")
	}
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	sub := newSubscriber(capacity)

	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()

	return &Subscription{id: id, sub: sub, bus: b}, nil
}

// Unsubscribe removes a subscription by id. Idempotent.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	delete(b.subscribers, id)
	b.mu.Unlock()
	if ok {
		sub.closed.Store(true)
		close(sub.notify)
	}
}

// Publish fans event out to every subscriber, evicting each subscriber's
// oldest buffered event if its buffer is full. Never blocks.
func (b *Bus) Publish(event RuntimeEvent) {
	if b.closed.Load() {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	dropped := 0
	for _, sub := range subs {
		if sub.push(event) {
			dropped++
		}
	}

	b.totalPublished.Add(1)
	b.totalDropped.Add(int64(dropped))

	b.logger.Debug("broadcast publish",
		zap.String("type", string(event.Type)),
		zap.String("session_id", event.SessionID),
		zap.Int("subscribers", len(subs)),
		zap.Int("evicted", dropped))
}

// Stats reports lifetime publish/drop counters.
type Stats struct {
	TotalPublished int64
	TotalDropped   int64
	Subscribers    int
}

// Stats returns the bus's current counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subscribers)
	b.mu.RUnlock()
	return Stats{
		TotalPublished: b.totalPublished.Load(),
		TotalDropped:   b.totalDropped.Load(),
		Subscribers:    n,
	}
}

// Shutdown closes every subscription and marks the bus closed to new
// subscribers and publishes.
func (b *Bus) Shutdown() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	subs := b.subscribers
	b.subscribers = make(map[string]*subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.closed.Store(true)
		close(sub.notify)
	}
}
