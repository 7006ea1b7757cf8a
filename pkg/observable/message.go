package observable

// Subscriber receives notifications from an Observable.
//
// Implementations must be comparable (the observable keys its subscriber table
// by identity, so use pointer receivers). Alive may be called concurrently with
// Deliver. Deliver is called while the observable lock is held and must never
// block: hand the message to a buffer and return.
type Subscriber[T any] interface {
	Alive() bool
	Deliver(msg Message[T])
}

// Message is a single notification: the new state of one observable, addressed
// to one subscriber. A fresh Message is built for every delivery and is never
// modified afterwards.
type Message[T any] struct {
	subscriber Subscriber[T]
	observable *Observable[T]
	state      State
	value      T
	err        error
}

func newMessage[T any](sub Subscriber[T], o *Observable[T]) Message[T] {
	return Message[T]{
		subscriber: sub,
		observable: o,
		state:      o.state,
		value:      o.value,
		err:        o.err,
	}
}

// Subscriber returns the addressee
func (m Message[T]) Subscriber() Subscriber[T] { return m.subscriber }

// Observable returns the sender
func (m Message[T]) Observable() *Observable[T] { return m.observable }

// State returns the state of the observable when the message was sent
func (m Message[T]) State() State { return m.state }

// Value returns the published value. ok is false for reset and crash messages.
func (m Message[T]) Value() (value T, ok bool) {
	if m.state != StatePublished {
		var zero T
		return zero, false
	}
	return m.value, true
}

// Err returns the *CrashError of a crash message, nil otherwise
func (m Message[T]) Err() error { return m.err }
