package observer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cuemby/tether/pkg/log"
	"github.com/cuemby/tether/pkg/metrics"
	"github.com/cuemby/tether/pkg/observable"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// ErrClosed is returned by Next after Close
var ErrClosed = errors.New("observer closed")

// Observer subscribes to observables and queues their notifications in an
// unbounded mailbox. It stays alive until Close; observables drop it on their
// next broadcast after that.
type Observer[T any] struct {
	id     string
	name   string
	logger zerolog.Logger

	// mu orders Deliver against Close so nothing is queued after the drain
	mu        sync.Mutex
	alive     *atomic.Bool
	delivered *atomic.Uint64
	mailbox   *Mailbox[observable.Message[T]]
	closed    chan struct{}
}

// New creates a live observer. The name labels its logs and mailbox metric.
func New[T any](name string) *Observer[T] {
	id := uuid.New().String()
	return &Observer[T]{
		id:        id,
		name:      name,
		logger:    log.WithObserverID(id).With().Str("observer", name).Logger(),
		alive:     atomic.NewBool(true),
		delivered: atomic.NewUint64(0),
		mailbox:   NewMailbox[observable.Message[T]](),
		closed:    make(chan struct{}),
	}
}

// ID returns the observer's unique id
func (o *Observer[T]) ID() string { return o.id }

// Name returns the name given at construction
func (o *Observer[T]) Name() string { return o.name }

func (o *Observer[T]) String() string {
	return fmt.Sprintf("Observer<%s/%s>", o.name, o.id[:8])
}

// Alive reports whether the observer still wants notifications
func (o *Observer[T]) Alive() bool {
	return o.alive.Load()
}

// Deliver queues msg. It never blocks.
func (o *Observer[T]) Deliver(msg observable.Message[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.alive.Load() {
		return
	}
	o.mailbox.Put(msg)
	o.delivered.Inc()
	metrics.ObserverMailboxDepth.WithLabelValues(o.name).Inc()
}

// Delivered returns the number of messages queued over the observer's lifetime
func (o *Observer[T]) Delivered() uint64 {
	return o.delivered.Load()
}

// Pending returns the number of queued messages not yet taken by Next
func (o *Observer[T]) Pending() int {
	return o.mailbox.Len()
}

// Next returns the next queued message, waiting until one arrives, ctx is done
// or the observer is closed.
func (o *Observer[T]) Next(ctx context.Context) (observable.Message[T], error) {
	if msg, ok := o.mailbox.TryTake(); ok {
		metrics.ObserverMailboxDepth.WithLabelValues(o.name).Dec()
		return msg, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-o.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	msg, err := o.mailbox.Take(ctx)
	if err != nil {
		if !o.alive.Load() {
			return msg, ErrClosed
		}
		return msg, err
	}
	metrics.ObserverMailboxDepth.WithLabelValues(o.name).Dec()
	return msg, nil
}

// forget unsubscribes from obs and discards its queued messages, so a later
// Get or Watch on obs starts from the value Subscribe returns
func (o *Observer[T]) forget(obs *observable.Observable[T]) {
	obs.Unsubscribe(o)

	n := o.mailbox.Remove(func(msg observable.Message[T]) bool {
		return msg.Observable() == obs
	})
	if n > 0 {
		metrics.ObserverMailboxDepth.WithLabelValues(o.name).Sub(float64(n))
	}
}

// Close marks the observer dead and discards queued messages. It is safe to
// call more than once.
func (o *Observer[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.alive.CompareAndSwap(true, false) {
		return
	}
	close(o.closed)

	if n := o.mailbox.Drain(); n > 0 {
		metrics.ObserverMailboxDepth.WithLabelValues(o.name).Sub(float64(n))
		o.logger.Debug().Int("discarded", n).Msg("closed with pending messages")
	}
}
