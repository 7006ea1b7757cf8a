package observable

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for caller misuse: a nil update payload,
	// a nil crash reason or a nil subscriber. Nothing is delivered.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyCrashed is returned by Update, Reset and Crash once the
	// observable has crashed. Crashed is permanent.
	ErrAlreadyCrashed = errors.New("observable already crashed")

	// ErrCrashed matches every CrashError.
	ErrCrashed = errors.New("observable crashed")
)

// CrashError is the terminal error of a crashed observable. It is returned by
// Subscribe after the crash and carried by the crash notification.
type CrashError struct {
	Subject string
	Reason  error
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("observable %s crashed: %v", e.Subject, e.Reason)
}

// Unwrap returns the crash reason
func (e *CrashError) Unwrap() error {
	return e.Reason
}

// Is reports whether target is ErrCrashed
func (e *CrashError) Is(target error) bool {
	return target == ErrCrashed
}
