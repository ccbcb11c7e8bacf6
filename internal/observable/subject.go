// Package observable provides a replay-latest broadcast cell.
//
// A Subject holds one value. Readers get the latest value without locking;
// subscribers receive the current value on subscription and then every later
// value, in publish order.
package observable

import (
	"sync"
	"sync/atomic"
)

// Observable is the read side of a Subject handed to consumers.
type Observable[T any] interface {
	Value() T
	Subscribe(fn func(T)) *Subscription
}

// Subject is a single-writer, multi-reader cell with replay-latest semantics.
type Subject[T any] struct {
	val atomic.Pointer[T]

	mu     sync.Mutex // serialises Publish and Subscribe delivery
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Subscription detaches a subscriber. Unsubscribe is safe to call more than once.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops further deliveries.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// NewSubject creates a subject holding initial.
func NewSubject[T any](initial T) *Subject[T] {
	s := &Subject[T]{}
	s.val.Store(&initial)
	return s
}

// Value returns the latest published value. It never blocks.
func (s *Subject[T]) Value() T {
	return *s.val.Load()
}

// Publish replaces the value and delivers it to every subscriber before returning.
// Callbacks run on the publishing goroutine and must not publish to s.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.val.Store(&v)
	for _, sub := range s.subs {
		sub.fn(v)
	}
}

// Subscribe delivers the current value to fn immediately, then every later value.
func (s *Subject[T]) Subscribe(fn func(T)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	fn(*s.val.Load())

	return &Subscription{cancel: func() { s.remove(id) }}
}

// Subscribers reports how many subscribers are attached.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so a Publish iterating the old slice is unaffected.
	kept := make([]subscriber[T], 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.id != id {
			kept = append(kept, sub)
		}
	}
	s.subs = kept
}
