package agent

import (
	"context"
	"sync"

	"github.com/cuemby/tether/pkg/observable"
)

// Handle tracks the observable of a supervised publisher. Every restart
// creates a fresh observable; the handle always points at the newest one.
type Handle[T any] struct {
	name string

	mu         sync.Mutex
	current    *observable.Observable[T]
	generation uint64
	changed    chan struct{}
}

func newHandle[T any](name string) *Handle[T] {
	return &Handle[T]{
		name:    name,
		changed: make(chan struct{}),
	}
}

// Name returns the publisher name, which is also the subject of its observables
func (h *Handle[T]) Name() string {
	return h.name
}

// Observable returns the current generation, or nil before the first run
func (h *Handle[T]) Observable() *observable.Observable[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Generation returns the number of runs started so far
func (h *Handle[T]) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generation
}

// Next waits for a generation other than prev and returns it. Pass nil to
// get the current generation as soon as there is one.
func (h *Handle[T]) Next(ctx context.Context, prev *observable.Observable[T]) (*observable.Observable[T], error) {
	for {
		h.mu.Lock()
		current, changed := h.current, h.changed
		h.mu.Unlock()

		if current != nil && current != prev {
			return current, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (h *Handle[T]) set(obs *observable.Observable[T]) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.current = obs
	h.generation++
	close(h.changed)
	h.changed = make(chan struct{})
	return h.generation
}
