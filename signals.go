package watchdog

import "github.com/zoobzio/capitan"

// Observer lifecycle signals.
var (
	// ObserverStarted is emitted when an Observer's consumer loop begins.
	ObserverStarted = capitan.NewSignal(
		"watchdog.observer.started",
		"Observer dispatching started",
	)

	// ObserverStopped is emitted when an Observer's consumer loop exits.
	ObserverStopped = capitan.NewSignal(
		"watchdog.observer.stopped",
		"Observer dispatching stopped",
	)
)

// Watch registry signals.
var (
	// WatchScheduled is emitted when a watch is scheduled.
	WatchScheduled = capitan.NewSignal(
		"watchdog.watch.scheduled",
		"Watch scheduled",
	)

	// WatchUnscheduled is emitted when a watch is unscheduled.
	WatchUnscheduled = capitan.NewSignal(
		"watchdog.watch.unscheduled",
		"Watch unscheduled",
	)
)

// Emitter and dispatch signals.
var (
	// EmitterStarted is emitted when an emitter's poll loop begins.
	EmitterStarted = capitan.NewSignal(
		"watchdog.emitter.started",
		"Emitter polling started",
	)

	// EmitterStopped is emitted when an emitter's poll loop exits.
	EmitterStopped = capitan.NewSignal(
		"watchdog.emitter.stopped",
		"Emitter polling stopped",
	)

	// EmitterPollFailed is emitted when a platform source poll returns a
	// fatal error and the emitter loop ends.
	EmitterPollFailed = capitan.NewSignal(
		"watchdog.emitter.poll.failed",
		"Platform source poll failed",
	)

	// DispatchFailed is emitted when a handler returns an error or panics.
	// Dispatch continues with the remaining handlers.
	DispatchFailed = capitan.NewSignal(
		"watchdog.dispatch.failed",
		"Handler failed during dispatch",
	)
)
