package watchdog

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key observer events.
type MetricsProvider interface {
	// OnEventQueued is called when an emitter enqueues an event.
	// Events collapsed by the skip-repeats check are not counted.
	OnEventQueued(watch ObservedWatch)

	// OnDispatchSuccess is called after an event is delivered to a handler.
	// Duration is the time taken by that single handler invocation.
	OnDispatchSuccess(duration time.Duration)

	// OnDispatchFailure is called when a handler returns an error or panics.
	OnDispatchFailure(duration time.Duration)

	// OnEmitterFailure is called when an emitter's platform source fails
	// fatally and its loop exits.
	OnEmitterFailure(watch ObservedWatch)

	// OnWatchScheduled is called when a new watch gains an emitter.
	OnWatchScheduled(watch ObservedWatch)

	// OnWatchUnscheduled is called when a watch's emitter is removed.
	OnWatchUnscheduled(watch ObservedWatch)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnEventQueued(_ ObservedWatch)      {}
func (NoOpMetricsProvider) OnDispatchSuccess(_ time.Duration)  {}
func (NoOpMetricsProvider) OnDispatchFailure(_ time.Duration)  {}
func (NoOpMetricsProvider) OnEmitterFailure(_ ObservedWatch)   {}
func (NoOpMetricsProvider) OnWatchScheduled(_ ObservedWatch)   {}
func (NoOpMetricsProvider) OnWatchUnscheduled(_ ObservedWatch) {}
