package observer

import (
	"context"
	"sync"
)

// Mailbox is an unbounded FIFO queue. Put never blocks, which is what lets an
// observable deliver while holding its lock.
type Mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	signal chan struct{}
}

// NewMailbox creates an empty mailbox
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		signal: make(chan struct{}, 1),
	}
}

// Put appends v and wakes a waiting Take
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	m.queue = append(m.queue, v)
	m.mu.Unlock()

	m.notify()
}

// Take removes and returns the oldest item, waiting until one arrives or ctx is done
func (m *Mailbox[T]) Take(ctx context.Context) (T, error) {
	for {
		if v, ok := m.TryTake(); ok {
			return v, nil
		}

		select {
		case <-m.signal:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryTake removes and returns the oldest item without waiting
func (m *Mailbox[T]) TryTake() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if len(m.queue) == 0 {
		return zero, false
	}

	v := m.queue[0]
	m.queue[0] = zero
	m.queue = m.queue[1:]
	if len(m.queue) == 0 {
		// drop the backing array so a burst does not pin memory
		m.queue = nil
	} else {
		m.notify()
	}
	return v, true
}

// Len returns the number of queued items
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Drain removes all queued items and returns how many there were
func (m *Mailbox[T]) Drain() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.queue)
	m.queue = nil
	return n
}

// Remove deletes every queued item for which match returns true, keeping the
// order of the rest, and returns how many were removed
func (m *Mailbox[T]) Remove(match func(T) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.queue[:0]
	for _, v := range m.queue {
		if !match(v) {
			kept = append(kept, v)
		}
	}
	n := len(m.queue) - len(kept)
	var zero T
	for i := len(kept); i < len(m.queue); i++ {
		m.queue[i] = zero
	}
	m.queue = kept
	if len(m.queue) == 0 {
		m.queue = nil
	}
	return n
}

func (m *Mailbox[T]) notify() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}
