package registry

import (
	"context"
	"errors"
	"fmt"
)

// ErrOwnerStopped is the exit cause of an owner that stopped without failing
var ErrOwnerStopped = errors.New("owner stopped")

// OwnerExitError is the crash reason the registry gives an observable whose
// owner exited.
type OwnerExitError struct {
	Owner string
	Cause error
}

func (e *OwnerExitError) Error() string {
	return fmt.Sprintf("owner %s exited: %v", e.Owner, e.Cause)
}

// Unwrap returns the owner's exit cause
func (e *OwnerExitError) Unwrap() error {
	return e.Cause
}

// Owner is the lifetime an observable is bound to. It is a named context that
// ends with a cause: Stop for a normal exit, Fail for a failure.
type Owner struct {
	name   string
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewOwner creates an owner that also ends when parent is done
func NewOwner(parent context.Context, name string) *Owner {
	ctx, cancel := context.WithCancelCause(parent)
	return &Owner{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Name returns the owner's name
func (o *Owner) Name() string { return o.name }

// Context returns the owner's context, for the owner's own work
func (o *Owner) Context() context.Context { return o.ctx }

// Done is closed when the owner exits
func (o *Owner) Done() <-chan struct{} { return o.ctx.Done() }

// Stop ends the owner normally
func (o *Owner) Stop() {
	o.cancel(ErrOwnerStopped)
}

// Fail ends the owner with err. A nil err is a normal stop.
func (o *Owner) Fail(err error) {
	if err == nil {
		err = ErrOwnerStopped
	}
	o.cancel(err)
}

// Cause returns why the owner exited, nil while it is running
func (o *Owner) Cause() error {
	if o.ctx.Err() == nil {
		return nil
	}
	return context.Cause(o.ctx)
}
