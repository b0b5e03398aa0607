package broadcast

import (
	"context"
	"sync"
)

// Subscription receives published values until it or its Broadcaster is closed.
type Subscription[T any] struct {
	ch     chan T
	mu     sync.Mutex
	closed bool
	owner  *Broadcaster[T]
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	if s.owner != nil {
		s.owner.remove(s)
		return
	}
	s.shut()
}

func (s *Subscription[T]) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *Subscription[T]) offer(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

// Broadcaster delivers each published value to every live subscription.
// All methods are safe for concurrent use.
type Broadcaster[T any] struct {
	mu         sync.RWMutex
	subs       map[*Subscription[T]]struct{}
	bufferSize int
	closed     bool
}

// New creates a broadcaster whose subscriptions buffer bufferSize values
// (minimum 1).
func New[T any](bufferSize int) *Broadcaster[T] {
	return &Broadcaster[T]{
		subs:       make(map[*Subscription[T]]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

// Subscribe registers a subscription that ends when ctx is done. After Close
// it returns an already-closed subscription.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) *Subscription[T] {
	sub := &Subscription[T]{ch: make(chan T, b.bufferSize), owner: b}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.shut()
		return sub
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			b.remove(sub)
		}()
	}
	return sub
}

// Publish offers v to every subscription and reports how many accepted it.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.subs {
		if sub.offer(v) {
			delivered++
		}
	}
	return delivered
}

// Len reports the number of live subscriptions.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later Publish calls deliver nothing.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.shut()
	}
	clear(b.subs)
}

func (b *Broadcaster[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
	sub.shut()
}
