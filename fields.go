package watchdog

import "github.com/zoobzio/capitan"

// Field keys for Observer events.
var (
	// KeyWatch is the diagnostic rendering of the watch involved.
	KeyWatch = capitan.NewStringKey("watch")

	// KeyPath is the filesystem path involved.
	KeyPath = capitan.NewStringKey("path")

	// KeyOp is the change kind of a dispatched event.
	KeyOp = capitan.NewStringKey("op")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyTimeout is the configured poll timeout.
	KeyTimeout = capitan.NewDurationKey("timeout")

	// KeyState is the lifecycle state at the time of emission.
	KeyState = capitan.NewStringKey("state")

	// KeyHandlerCount is the number of handlers registered for a watch.
	KeyHandlerCount = capitan.NewIntKey("handler_count")
)
