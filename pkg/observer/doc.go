// Package observer implements the subscriber side of observables: an Observer
// with an unbounded mailbox, and Get and Watch helpers that wait on an
// observable's value with context cancellation.
//
// Deliver appends to the mailbox and returns immediately, so an observable
// broadcasting under its lock is never held up by a slow consumer. The
// tether_observer_mailbox_depth gauge shows consumers that fall behind.
package observer
