package watchdog

// Delivery carries one handler invocation through the dispatch pipeline.
// Pipeline stages see which event is being delivered, for which watch, and
// to which handler.
type Delivery struct {
	// Event is the filesystem change being delivered.
	Event Event

	// Watch is the originating watch.
	Watch ObservedWatch

	// Handler is the registered handler this delivery targets.
	Handler Handler
}
