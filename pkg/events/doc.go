/*
Package events provides an in-memory broker for tether lifecycle events.

Where an observable carries one value to the components that depend on it, the
event broker carries a log of what happened to observables and their owners:
registrations, crashes, owner exits and agent worker restarts. Nothing depends
on these events for correctness; they exist for operators and audit logs.

# Event Flow

	registry / agent ──Publish──► event channel (100) ──► broadcast loop
	                                                          │
	                                 ┌────────────────────────┼──────────┐
	                                 ▼                        ▼          ▼
	                           subscriber (50)          subscriber   subscriber

Publish never blocks. Events are dropped, and counted in Dropped, when the
broker is stopped, its queue is full, or a subscriber's buffer is full.

# Event Types

  - observable.registered: an observable was bound to an owner
  - observable.crashed: the registry crashed an observable after its owner exited
  - observable.detached: an owner exited but its observable had already crashed
  - owner.exited: an owner context ended
  - worker.started, worker.failed, worker.restarted: agent supervision

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			logger.Info().Str("type", string(event.Type)).Str("subject", event.Subject).Msg(event.Message)
		}
	}()
*/
package events
