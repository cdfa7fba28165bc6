package watchdog

import "errors"

var (
	// ErrWatchNotFound is returned when an operation references a watch
	// that is not currently scheduled.
	ErrWatchNotFound = errors.New("watch not found")

	// ErrHandlerNotFound is returned when removing a handler that is not
	// registered for the given watch.
	ErrHandlerNotFound = errors.New("handler not found for watch")

	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("observer already started")
)
