// Package observe provides a publish/subscribe state container.
//
// A State holds the latest value of something (the tenant id, a session's
// authentication state, the active theme) and delivers every change to every
// subscriber exactly once and in publish order. Subscribers never block the
// publisher: each subscription owns an unbounded queue drained by its own
// goroutine.
package observe

import (
	"sync"
)

// State is a value with ordered change notification.
type State[T any] struct {
	mu     sync.Mutex
	value  T
	set    bool
	nextID int
	subs   map[int]*subscription[T]
	closed bool
}

type subscription[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
	out    chan T
}

// New creates an empty State. Subscribers receive nothing until the first Publish.
func New[T any]() *State[T] {
	return &State[T]{subs: make(map[int]*subscription[T])}
}

// NewWith creates a State holding an initial value.
func NewWith[T any](v T) *State[T] {
	s := New[T]()
	s.value = v
	s.set = true
	return s
}

// Get returns the current value and whether one has been published.
func (s *State[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// Publish stores v and queues it for every subscriber.
func (s *State[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.value = v
	s.set = true
	for _, sub := range s.subs {
		sub.push(v)
	}
}

// Subscribe returns a channel receiving the current value (if any) followed by
// every later published value, and a cancel func that stops delivery and
// closes the channel.
func (s *State[T]) Subscribe() (<-chan T, func()) {
	sub := &subscription[T]{out: make(chan T)}
	sub.cond = sync.NewCond(&sub.mu)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.closed {
		s.mu.Unlock()
		close(sub.out)
		return sub.out, func() {}
	}
	if s.set {
		sub.queue = append(sub.queue, s.value)
	}
	s.subs[id] = sub
	s.mu.Unlock()

	done := make(chan struct{})
	go sub.pump(done)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			sub.close()
			close(done)
		})
	}
	return sub.out, cancel
}

// Subscribers reports the number of live subscriptions.
func (s *State[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close ends every subscription. Values already queued are still delivered.
func (s *State[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, sub := range s.subs {
		sub.close()
		delete(s.subs, id)
	}
}

func (sub *subscription[T]) push(v T) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, v)
	sub.mu.Unlock()
	sub.cond.Signal()
}

func (sub *subscription[T]) close() {
	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
	sub.cond.Signal()
}

// pump drains the queue into out. done aborts a blocked send after cancel.
func (sub *subscription[T]) pump(done <-chan struct{}) {
	defer close(sub.out)
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.closed {
			sub.cond.Wait()
		}
		if len(sub.queue) == 0 {
			sub.mu.Unlock()
			return
		}
		v := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.out <- v:
		case <-done:
			return
		}
	}
}
