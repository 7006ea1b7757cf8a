/*
Package registry binds observables to the lifetime of the component that owns
them.

An observable's owner is the only thing that can update it. If the owner dies,
subscribers would wait forever for a value that never comes. The registry
prevents that: it watches each owner and, when the owner exits, crashes the
observables registered to it with an *OwnerExitError carrying the exit cause.

	owner := registry.NewOwner(ctx, "NodeWorker")
	if _, err := reg.Register(nodeInfo, owner); err != nil {
		return err
	}

	go func() {
		owner.Fail(worker.Run(owner.Context()))
	}()

A Stop (or cancellation of the parent context) crashes with ErrOwnerStopped; a
Fail crashes with the given error. Observables the owner already crashed itself
are detached without a second crash.

The registry is an ordinary value passed to whatever creates observables.
There is no process-wide instance.
*/
package registry
