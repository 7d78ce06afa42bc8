package events

import (
	"sync"
	"sync/atomic"
)

// Handler is a callback invoked synchronously for every emitted value.
type Handler[T any] func(T)

// Subscription is a registered handler on a Feed.
// Use Cancel to stop receiving values.
type Subscription interface {
	// ID is unique among the subscriptions of one Feed.
	ID() uint64
	// IsActive reports whether the handler is still registered.
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel()
}

// Feed is an ordered list of subscribers owned by a single publisher.
//
// Emit delivers synchronously on the caller goroutine, in subscription order (FIFO).
// The subscriber list is guarded, but no lock is held while handlers run, so a handler
// may subscribe, cancel or re-enter the publisher without deadlocking.
//
// The zero value is ready to use. A Feed must not be copied after first use.
type Feed[T any] struct {
	mu   sync.RWMutex
	seq  atomic.Uint64
	subs []*subscription[T]
}

type subscription[T any] struct {
	id      uint64
	handler Handler[T]
	active  atomic.Bool
	feed    *Feed[T]
}

func (s *subscription[T]) ID() uint64     { return s.id }
func (s *subscription[T]) IsActive() bool { return s.active.Load() }

func (s *subscription[T]) Cancel() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.feed.remove(s)
}

// Subscribe appends handler to the feed.
func (f *Feed[T]) Subscribe(handler Handler[T]) Subscription {
	s := &subscription[T]{
		id:      f.seq.Add(1),
		handler: handler,
		feed:    f,
	}
	s.active.Store(true)

	f.mu.Lock()
	f.subs = append(f.subs, s)
	f.mu.Unlock()

	return s
}

// Emit delivers value to every active subscriber.
// Handlers cancelled during delivery are skipped; handlers added during delivery
// only see subsequent values.
func (f *Feed[T]) Emit(value T) {
	f.mu.RLock()
	snapshot := f.subs
	f.mu.RUnlock()

	for _, s := range snapshot {
		if !s.active.Load() {
			continue
		}
		s.handler(value)
	}
}

// Len returns the number of active subscribers.
func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *Feed[T]) remove(target *subscription[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s == target {
			// Emit iterates a snapshot of the old slice, so never shift in place.
			next := make([]*subscription[T], 0, len(f.subs)-1)
			next = append(next, f.subs[:i]...)
			next = append(next, f.subs[i+1:]...)
			f.subs = next
			return
		}
	}
}

// CancelAll cancels every subscription in subs, skipping nil entries.
func CancelAll(subs ...Subscription) {
	for _, s := range subs {
		if s != nil {
			s.Cancel()
		}
	}
}
