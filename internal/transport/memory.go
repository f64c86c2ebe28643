package transport

import (
	"context"
	"sync"

	"github.com/repolens/repolens/internal/events"
)

// Subscription is one subscriber's view of a topic. Events are
// delivered in publish order; the channel closes when the subscriber
// unsubscribes or the bus shuts down.
type Subscription struct {
	topic string
	out   chan *events.Event

	mu     sync.Mutex
	queue  []*events.Event
	closed bool
	wake   chan struct{}
}

// Events returns the channel delivering this subscription's events.
// The channel is closed as the terminal "stream closed" signal.
func (s *Subscription) Events() <-chan *events.Event {
	return s.out
}

// Topic returns the topic this subscription is attached to.
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe detaches the subscription. Already-enqueued events are
// still delivered before the channel closes.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.notify()
}

// enqueue appends an event to the subscription's pending queue.
// Returns false if the subscription is already closed.
func (s *Subscription) enqueue(event *events.Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Subscription) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump forwards queued events to the out channel in order. Runs in its
// own goroutine so a slow subscriber never blocks publishers or other
// subscribers. Drains the remaining queue before closing out.
func (s *Subscription) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 {
			if s.closed {
				s.mu.Unlock()
				close(s.out)
				return
			}
			s.mu.Unlock()
			<-s.wake
			s.mu.Lock()
		}
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, event := range batch {
			s.out <- event
		}
	}
}

// MemoryBus is an in-process Bus implementation. Publishes under one
// lock per topic, which gives per-publisher FIFO ordering; delivery to
// each subscriber is decoupled through a per-subscription queue.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]*Subscription
	closed      bool
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subscribers: make(map[string][]*Subscription),
	}
}

// Publish delivers the event to every current subscriber of the topic.
// Publishing to a topic with no subscribers is a no-op, not an error.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event *events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, sub := range b.subscribers[topic] {
		sub.enqueue(event)
	}
	return nil
}

// Subscribe registers a subscriber for the topic.
func (b *MemoryBus) Subscribe(topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &Subscription{
		topic: topic,
		out:   make(chan *events.Event),
		wake:  make(chan struct{}, 1),
	}
	go sub.pump()
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	return sub, nil
}

// Close shuts down the bus and closes all subscription channels once
// their pending events have been delivered.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
	b.subscribers = make(map[string][]*Subscription)
	return nil
}
