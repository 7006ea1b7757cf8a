package observable

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/cuemby/tether/pkg/log"
	"github.com/cuemby/tether/pkg/metrics"
	"github.com/rs/zerolog"
)

// State is the state of an Observable
type State int

const (
	// StateUnset is the initial state, and the state after Reset
	StateUnset State = iota
	// StatePublished means the observable holds a value
	StatePublished
	// StateCrashed is terminal
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StatePublished:
		return "published"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Observable is a value that changes over time, written by one owner and
// observed by any number of subscribers.
//
// Subscribers registered with persistent=true stay registered and receive
// every later change. One-shot subscribers receive a single notification and
// are then dropped. Dead subscribers are pruned on the next broadcast.
//
// Every method takes the observable lock for its full duration; broadcasts run
// entirely under the lock, which keeps per-subscriber delivery in order.
type Observable[T any] struct {
	subject string
	logger  zerolog.Logger

	mu          sync.Mutex
	state       State
	value       T
	err         error
	subscribers map[Subscriber[T]]bool
}

// Option configures an Observable
type Option func(*options)

type options struct {
	logger *zerolog.Logger
}

// WithLogger overrides the logger, which defaults to the global logger scoped to the subject
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// New creates an unset Observable. The subject identifies it in logs and errors.
func New[T any](subject string, opts ...Option) *Observable[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.WithSubject(subject)
	if o.logger != nil {
		logger = *o.logger
	}

	return &Observable[T]{
		subject:     subject,
		logger:      logger,
		subscribers: make(map[Subscriber[T]]bool),
	}
}

// Subject returns the subject given at construction
func (o *Observable[T]) Subject() string {
	return o.subject
}

func (o *Observable[T]) String() string {
	return "Observable<" + o.subject + ">"
}

// Get returns the current value. ok is false unless the observable is published.
func (o *Observable[T]) Get() (value T, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StatePublished {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Err returns the *CrashError of a crashed observable, nil otherwise
func (o *Observable[T]) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// State returns the current state
func (o *Observable[T]) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsPublished reports whether the observable holds a value
func (o *Observable[T]) IsPublished() bool {
	return o.State() == StatePublished
}

// IsCrashed reports whether the observable has crashed
func (o *Observable[T]) IsCrashed() bool {
	return o.State() == StateCrashed
}

// HasSubscribers reports whether anyone is waiting on this observable. Owners
// use it to skip work nobody will see, as NodeWorker does for heartbeats.
func (o *Observable[T]) HasSubscribers() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subscribers) > 0
}

// SubscriberCount returns the number of registered subscribers, dead ones included
func (o *Observable[T]) SubscriberCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subscribers)
}

// Update publishes a new value and notifies every subscriber.
//
// The value is shared with all current and future subscribers; the caller must
// not mutate it afterwards. Nil pointers, maps, slices, channels, funcs and
// interfaces are rejected with ErrInvalidArgument; zero values such as false,
// 0 or an empty non-nil slice are valid.
func (o *Observable[T]) Update(value T) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateCrashed {
		return fmt.Errorf("%w: update %s: %v", ErrAlreadyCrashed, o, o.err)
	}
	if isNil(value) {
		return fmt.Errorf("%w: update %s with nil value", ErrInvalidArgument, o)
	}

	o.logger.Debug().Interface("value", value).Msg("update")
	metrics.ObservableUpdates.WithLabelValues("update").Inc()

	o.state = StatePublished
	o.value = value
	o.broadcast()
	return nil
}

// Reset returns the observable to the unset state, for when the published fact
// is temporarily unknown. Persistent subscribers are notified with an unset
// message; one-shot subscribers still waiting for a first value stay registered.
func (o *Observable[T]) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateCrashed {
		return fmt.Errorf("%w: reset %s: %v", ErrAlreadyCrashed, o, o.err)
	}

	o.logger.Debug().Msg("reset")
	metrics.ObservableUpdates.WithLabelValues("reset").Inc()

	var zero T
	o.state = StateUnset
	o.value = zero
	o.broadcast()
	return nil
}

// Crash permanently fails the observable with reason and notifies every
// subscriber. Later writes fail with ErrAlreadyCrashed and later subscribes
// return the *CrashError.
func (o *Observable[T]) Crash(reason error) error {
	if isNil(reason) {
		return fmt.Errorf("%w: crash %s with nil error", ErrInvalidArgument, o)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateCrashed {
		return fmt.Errorf("%w: crash %s: %v", ErrAlreadyCrashed, o, o.err)
	}

	o.logger.Debug().Err(reason).Msg("crash")
	metrics.ObservableUpdates.WithLabelValues("crash").Inc()

	var zero T
	o.state = StateCrashed
	o.value = zero
	o.err = &CrashError{Subject: o.subject, Reason: reason}
	o.broadcast()
	return nil
}

// Subscribe registers sub for notifications and returns the current value.
//
//   - unset: sub is registered; returns ok=false and the caller waits for a message
//   - crashed: sub is not registered; returns the *CrashError
//   - published and persistent: sub is registered; returns the value
//   - published and one-shot: sub is not registered; returns the value
//
// The state check and registration happen under one lock acquisition, so a
// concurrent Update is seen either here or as a message, never both or neither.
// Subscribing an already registered subscriber replaces its persistent flag.
func (o *Observable[T]) Subscribe(sub Subscriber[T], persistent bool) (value T, ok bool, err error) {
	if sub == nil {
		return value, false, fmt.Errorf("%w: subscribe %s with nil subscriber", ErrInvalidArgument, o)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateUnset:
		o.subscribers[sub] = persistent
		return value, false, nil
	case StateCrashed:
		return value, false, o.err
	default:
		if persistent {
			o.subscribers[sub] = true
		}
		return o.value, true, nil
	}
}

// Unsubscribe removes sub. It receives nothing sent after Unsubscribe returns.
func (o *Observable[T]) Unsubscribe(sub Subscriber[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.subscribers, sub)
}

// broadcast notifies subscribers of the current state. Caller holds o.mu.
func (o *Observable[T]) broadcast() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ObservableBroadcastDuration)

	for sub, persistent := range o.subscribers {
		switch {
		case !sub.Alive():
			o.logger.Debug().Msgf("dead: %v", sub)
			metrics.ObservableSubscribersPruned.Inc()
			delete(o.subscribers, sub)

		case o.state == StateUnset && !persistent:
			// still waiting for a first value

		case !persistent:
			o.logger.Debug().Msgf("notify and drop: %v <- %s", sub, o.state)
			o.deliver(sub)
			delete(o.subscribers, sub)

		default:
			o.logger.Debug().Msgf("notify: %v <- %s", sub, o.state)
			o.deliver(sub)
		}
	}
}

func (o *Observable[T]) deliver(sub Subscriber[T]) {
	sub.Deliver(newMessage(sub, o))
	metrics.ObservableDeliveries.Inc()
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
