/*
Package observable provides the value cell that tether components use to
publish state that changes over time.

An Observable holds at most one current value. Its owner writes it with Update,
Reset and Crash; any number of subscribers read it with Subscribe and then
receive every later change as a Message, without polling. Node info, health
status and configuration published by agent workers all travel this way.

# Architecture

	┌──────────────────────── OBSERVABLE ─────────────────────────┐
	│                                                              │
	│   owner ──Update/Reset/Crash──┐                              │
	│                               ▼                              │
	│   ┌──────────────── mutex ────────────────────┐              │
	│   │  state: unset | published(v) | crashed(e) │              │
	│   │  subscribers: map[Subscriber]persistent   │              │
	│   └───────────────────┬───────────────────────┘              │
	│                       │ broadcast (under lock)               │
	│          ┌────────────┼─────────────┐                        │
	│          ▼            ▼             ▼                        │
	│      dead: drop   one-shot:     persistent:                  │
	│                   deliver,      deliver,                     │
	│                   drop          keep                         │
	│                                                              │
	│   reader ──Subscribe(sub, persistent)──► value | wait | err  │
	└──────────────────────────────────────────────────────────────┘

# States

  - unset: initial, and after Reset. Subscribe registers and returns ok=false.
  - published: Subscribe returns the value; persistent subscribers are also
    registered for later changes, one-shot subscribers are not.
  - crashed: terminal. Writes fail with ErrAlreadyCrashed; Subscribe returns
    the *CrashError without registering.

The state is an explicit tag, so false, 0, "" and empty non-nil slices are
ordinary values. Nil pointers, maps, slices, channels, funcs and interfaces are
rejected by Update with ErrInvalidArgument.

# Delivery

Broadcasts run entirely under the observable lock, so two broadcasts never
interleave and each subscriber sees changes in the order they were made.
Ordering between different subscribers within one broadcast is unspecified.

Deliver is called with the lock held. Implementations must hand the message
off without blocking; the observer package provides an unbounded mailbox for
this. Subscribers whose Alive reports false are removed on the next broadcast
without delivery.

# Usage

	nodeInfo := observable.New[*types.NodeInfo]("NodeWorker")

	// owner
	if err := nodeInfo.Update(info); err != nil {
		return err
	}

	// reader
	obs := observer.New[*types.NodeInfo]("stats")
	info, ok, err := nodeInfo.Subscribe(obs, true)

The owner should bind the observable to its own lifetime with a
registry.Registry so an owner failure crashes the observable instead of
leaving subscribers waiting forever.
*/
package observable
