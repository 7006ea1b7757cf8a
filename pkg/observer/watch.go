package observer

import (
	"context"
	"errors"

	"github.com/cuemby/tether/pkg/observable"
)

// ErrStopWatch can be returned by a Watch callback to end the watch without error
var ErrStopWatch = errors.New("stop watch")

// Get returns the value of obs, waiting for the first update if it is unset.
// It returns the crash error if obs crashes first, or ctx's error on timeout.
func (o *Observer[T]) Get(ctx context.Context, obs *observable.Observable[T]) (T, error) {
	v, ok, err := obs.Subscribe(o, false)
	if err != nil || ok {
		return v, err
	}
	defer o.forget(obs)

	for {
		msg, err := o.Next(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		if msg.Observable() != obs {
			continue
		}

		switch msg.State() {
		case observable.StatePublished:
			v, _ := msg.Value()
			return v, nil
		case observable.StateCrashed:
			var zero T
			return zero, msg.Err()
		}
	}
}

// Watch calls fn with the current value of obs and again with every later
// value, in order. Resets are skipped: fn is next called when obs publishes
// again. Watch returns the crash error when obs crashes, ctx's error when ctx
// is done, or fn's error; ErrStopWatch from fn ends the watch with nil.
//
// Watch unsubscribes and discards messages from obs still queued before
// returning, so fn is never called afterwards with an older value.
func (o *Observer[T]) Watch(ctx context.Context, obs *observable.Observable[T], fn func(T) error) error {
	v, ok, err := obs.Subscribe(o, true)
	if err != nil {
		return err
	}
	defer o.forget(obs)

	if ok {
		if err := fn(v); err != nil {
			return stopped(err)
		}
	}

	for {
		msg, err := o.Next(ctx)
		if err != nil {
			return err
		}
		if msg.Observable() != obs {
			continue
		}

		switch msg.State() {
		case observable.StatePublished:
			v, _ := msg.Value()
			if err := fn(v); err != nil {
				return stopped(err)
			}
		case observable.StateUnset:
			o.logger.Debug().Str("subject", obs.Subject()).Msg("reset, waiting for update")
		case observable.StateCrashed:
			return msg.Err()
		}
	}
}

func stopped(err error) error {
	if errors.Is(err, ErrStopWatch) {
		return nil
	}
	return err
}

// Get waits for the value of obs using a throwaway observer
func Get[T any](ctx context.Context, obs *observable.Observable[T]) (T, error) {
	o := New[T]("get")
	defer o.Close()
	return o.Get(ctx, obs)
}

// Watch runs a watch on obs using a throwaway observer
func Watch[T any](ctx context.Context, obs *observable.Observable[T], fn func(T) error) error {
	o := New[T]("watch")
	defer o.Close()
	return o.Watch(ctx, obs, fn)
}
