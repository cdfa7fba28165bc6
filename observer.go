package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// Observer coordinates the whole pipeline: it owns the shared event queue,
// the watch registries, one emitter per distinct watch, and the single
// consumer goroutine that drains the queue and invokes handlers.
//
// Handlers always run on the consumer goroutine, one at a time. The
// registry is re-read immediately before each individual handler call and
// released during the call itself, so a handler may call Schedule,
// Unschedule, AddHandler, or RemoveHandler from inside its own callback: a
// handler removed by an earlier handler in the same dispatch does not
// receive the in-flight event, while a handler removed after its own turn
// has already run is unaffected.
type Observer struct {
	factory  SourceFactory
	pipeline pipz.Chainable[*Delivery]
	timeout  time.Duration
	clock    clockz.Clock
	metrics  MetricsProvider
	queue    *eventQueue

	errs errorSink

	w worker

	mu       sync.Mutex
	started  bool
	runCtx   context.Context
	handlers map[ObservedWatch][]Handler
	emitters map[ObservedWatch]*EventEmitter
	watches  map[ObservedWatch]struct{}
}

// New creates an Observer that builds platform sources with factory.
//
// Pipeline options (With*) wrap handler invocation. Instance configuration
// uses chainable methods before calling Start().
//
// Example:
//
//	observer := watchdog.New(watchdog.NewDefaultSource,
//	    watchdog.WithTimeout(5*time.Second),
//	).Timeout(500 * time.Millisecond)
//
//	watch, err := observer.Schedule(handler, "/etc/myapp", true, 0)
func New(factory SourceFactory, opts ...Option) *Observer {
	terminal := pipz.Effect(pipz.Name("handler"), func(ctx context.Context, d *Delivery) error {
		return invokeHandler(ctx, d)
	})

	return &Observer{
		factory:  factory,
		pipeline: buildPipeline(terminal, opts),
		timeout:  DefaultTimeout,
		clock:    clockz.RealClock,
		queue:    newEventQueue(defaultQueueCapacity),
		handlers: make(map[ObservedWatch][]Handler),
		emitters: make(map[ObservedWatch]*EventEmitter),
		watches:  make(map[ObservedWatch]struct{}),
	}
}

// invokeHandler calls the delivery's handler, converting a panic into an
// error so one misbehaving handler cannot halt the consumer loop.
func invokeHandler(ctx context.Context, d *Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on %s: %v", d.Event, r)
		}
	}()
	return d.Handler.HandleEvent(ctx, d.Event)
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Timeout sets the poll timeout used by the consumer loop and by every
// emitter constructed afterwards. Default: DefaultTimeout.
// Must be called before Start().
func (o *Observer) Timeout(d time.Duration) *Observer {
	o.timeout = d
	return o
}

// Clock sets a custom clock for queue timeouts.
// Use this with clockz.FakeClock for deterministic tests.
// Must be called before Start().
func (o *Observer) Clock(clock clockz.Clock) *Observer {
	o.clock = clock
	return o
}

// QueueCapacity bounds the shared event queue. Emitters block (cancellably)
// once the backlog reaches this size. Default: 1024.
// Must be called before any watch is scheduled.
func (o *Observer) QueueCapacity(n int) *Observer {
	o.queue = newEventQueue(n)
	return o
}

// Metrics sets a metrics provider for observability integration.
// Must be called before any watch is scheduled.
func (o *Observer) Metrics(provider MetricsProvider) *Observer {
	o.metrics = provider
	return o
}

// ErrorHistorySize sets the number of recent dispatch and emitter errors to
// retain. Use 0 (default) to only retain the most recent error via
// LastError(). Must be called before Start().
func (o *Observer) ErrorHistorySize(n int) *Observer {
	o.errs.ring.Store(newErrorRing(n))
	return o
}

// LastError returns the most recent dispatch or emitter error, or nil.
func (o *Observer) LastError() error {
	return o.errs.lastError()
}

// ErrorHistory returns the retained errors, oldest first. Returns nil
// unless ErrorHistorySize was set.
func (o *Observer) ErrorHistory() []error {
	return o.errs.history()
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Schedule registers handler for the watch described by path, recursive,
// and filter, and returns the descriptor for later Unschedule calls.
// A filter of 0 delivers all kinds.
//
// Structurally equal descriptors share one emitter no matter how many
// handlers or Schedule calls they accumulate. If the observer is already
// running, a newly created emitter starts immediately; if it fails to
// start, nothing of the registration survives and the error is returned.
func (o *Observer) Schedule(handler Handler, path string, recursive bool, filter Op) (ObservedWatch, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	watch := ObservedWatch{Path: path, Recursive: recursive, Filter: filter}
	added := o.addHandlerLocked(handler, watch)

	if _, ok := o.emitters[watch]; !ok {
		emitter := newEventEmitter(o.queue, watch, o.factory, o.timeout, o.metrics, &o.errs)
		if o.w.alive() {
			if err := emitter.start(o.runCtx); err != nil {
				if added {
					o.removeHandlerLocked(handler, watch)
					if len(o.handlers[watch]) == 0 {
						delete(o.handlers, watch)
					}
				}
				return ObservedWatch{}, err
			}
		}
		o.emitters[watch] = emitter
		if o.metrics != nil {
			o.metrics.OnWatchScheduled(watch)
		}
	}
	o.watches[watch] = struct{}{}

	capitan.Emit(context.Background(), WatchScheduled,
		KeyWatch.Field(watch.String()),
		KeyHandlerCount.Field(len(o.handlers[watch])),
	)
	return watch, nil
}

// AddHandler attaches handler to an already-scheduled watch. Re-adding a
// handler already attached is a no-op. Referencing a watch that is not
// scheduled returns ErrWatchNotFound.
func (o *Observer) AddHandler(handler Handler, watch ObservedWatch) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.watches[watch]; !ok {
		return fmt.Errorf("%w: %s", ErrWatchNotFound, watch)
	}
	o.addHandlerLocked(handler, watch)
	return nil
}

// RemoveHandler detaches handler from watch. Removing a handler that is not
// attached returns ErrHandlerNotFound; an unknown watch returns
// ErrWatchNotFound.
//
// Removing the last handler does not unschedule the watch: its emitter
// keeps running with zero consumers until an explicit Unschedule.
func (o *Observer) RemoveHandler(handler Handler, watch ObservedWatch) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	list, ok := o.handlers[watch]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWatchNotFound, watch)
	}
	for i, h := range list {
		if h == handler {
			o.handlers[watch] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrHandlerNotFound, watch)
}

// Unschedule removes every handler for watch, stops and joins its emitter,
// and drops the watch. An unknown watch returns ErrWatchNotFound.
func (o *Observer) Unschedule(watch ObservedWatch) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	emitter, ok := o.emitters[watch]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWatchNotFound, watch)
	}
	delete(o.handlers, watch)
	o.removeEmitterLocked(watch, emitter)
	return nil
}

// UnscheduleAll removes every handler and watch. Emitters are all stopped
// before any is joined, so total shutdown latency is bounded by the slowest
// single poll timeout rather than their sum.
func (o *Observer) UnscheduleAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.handlers = make(map[ObservedWatch][]Handler)
	for _, emitter := range o.emitters {
		emitter.stop()
	}
	for watch, emitter := range o.emitters {
		emitter.join()
		if o.metrics != nil {
			o.metrics.OnWatchUnscheduled(watch)
		}
		capitan.Emit(context.Background(), WatchUnscheduled,
			KeyWatch.Field(watch.String()),
		)
	}
	o.emitters = make(map[ObservedWatch]*EventEmitter)
	o.watches = make(map[ObservedWatch]struct{})
}

// addHandlerLocked attaches handler with set semantics, preserving
// registration order. Reports whether the handler was newly added.
func (o *Observer) addHandlerLocked(handler Handler, watch ObservedWatch) bool {
	for _, h := range o.handlers[watch] {
		if h == handler {
			return false
		}
	}
	o.handlers[watch] = append(o.handlers[watch], handler)
	return true
}

func (o *Observer) removeHandlerLocked(handler Handler, watch ObservedWatch) {
	list := o.handlers[watch]
	for i, h := range list {
		if h == handler {
			o.handlers[watch] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// removeEmitterLocked stops, joins, and deregisters one emitter.
func (o *Observer) removeEmitterLocked(watch ObservedWatch, emitter *EventEmitter) {
	emitter.stop()
	emitter.join()
	delete(o.emitters, watch)
	delete(o.watches, watch)
	if o.metrics != nil {
		o.metrics.OnWatchUnscheduled(watch)
	}
	capitan.Emit(context.Background(), WatchUnscheduled,
		KeyWatch.Field(watch.String()),
	)
}

// Emitters returns the live emitters, one per distinct scheduled watch.
func (o *Observer) Emitters() []*EventEmitter {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*EventEmitter, 0, len(o.emitters))
	for _, emitter := range o.emitters {
		out = append(out, emitter)
	}
	return out
}

// EmitterFor returns the emitter serving watch, if the watch is scheduled.
func (o *Observer) EmitterFor(watch ObservedWatch) (*EventEmitter, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	emitter, ok := o.emitters[watch]
	return emitter, ok
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start starts every registered emitter, then the consumer loop. If an
// emitter fails to start it is stopped and removed, the error is returned,
// and the remaining emitters are not attempted; emitters that started
// before the failure keep running and a later Start may be retried.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.runCtx = ctx

	for watch, emitter := range o.emitters {
		if err := emitter.start(ctx); err != nil {
			o.removeEmitterLocked(watch, emitter)
			o.started = false
			o.mu.Unlock()
			return err
		}
	}
	o.mu.Unlock()

	o.w.start(ctx, o.run, o.UnscheduleAll)
	capitan.Emit(ctx, ObserverStarted,
		KeyTimeout.Field(o.timeout),
	)
	return nil
}

// Stop requests cancellation of the consumer loop and wakes it promptly
// with a best-effort stop sentinel; a full queue is ignored since the loop
// also wakes on its own poll timeout. When the loop exits it unschedules
// everything, so no emitter or handler registration outlives the observer.
// Stop is idempotent, and a no-op before Start.
func (o *Observer) Stop() {
	if !o.w.alive() {
		return
	}
	o.w.stop()
	o.queue.tryPut(queueEntry{stop: true})
}

// Alive reports whether the consumer loop is running.
func (o *Observer) Alive() bool {
	return o.w.alive()
}

// State returns the consumer loop's lifecycle state.
func (o *Observer) State() State {
	return o.w.currentState()
}

// Join waits for the consumer loop to exit, including its terminal
// UnscheduleAll. Safe to call more than once.
func (o *Observer) Join() {
	o.w.join()
}

// -----------------------------------------------------------------------------
// Consumer loop
// -----------------------------------------------------------------------------

func (o *Observer) run(ctx context.Context) {
	defer func() {
		capitan.Emit(context.Background(), ObserverStopped,
			KeyState.Field(StateStopped.String()),
		)
	}()

	for ctx.Err() == nil {
		entry, ok := o.queue.get(o.clock, o.timeout)
		if !ok {
			// Nothing arrived this interval.
			continue
		}
		if entry.stop {
			return
		}
		o.dispatch(ctx, entry)
		o.queue.taskDone()
	}
}

// dispatch delivers one entry to every handler registered for its watch at
// the moment of each individual call.
func (o *Observer) dispatch(ctx context.Context, entry queueEntry) {
	var invoked []Handler
	for {
		o.mu.Lock()
		var next Handler
		for _, h := range o.handlers[entry.watch] {
			if !containsHandler(invoked, h) {
				next = h
				break
			}
		}
		o.mu.Unlock()

		if next == nil {
			return
		}
		invoked = append(invoked, next)
		o.deliver(ctx, entry, next)
	}
}

// deliver pushes one handler invocation through the dispatch pipeline.
// Failures are recorded and never stop the loop.
func (o *Observer) deliver(ctx context.Context, entry queueEntry, handler Handler) {
	start := o.clock.Now()
	d := &Delivery{Event: entry.event, Watch: entry.watch, Handler: handler}
	if _, err := o.pipeline.Process(ctx, d); err != nil {
		o.setError(err)
		if o.metrics != nil {
			o.metrics.OnDispatchFailure(o.clock.Since(start))
		}
		capitan.Emit(ctx, DispatchFailed,
			KeyWatch.Field(entry.watch.String()),
			KeyOp.Field(entry.event.Op.String()),
			KeyError.Field(err.Error()),
		)
		return
	}
	if o.metrics != nil {
		o.metrics.OnDispatchSuccess(o.clock.Since(start))
	}
}

func (o *Observer) setError(err error) {
	o.errs.record(err)
}

func containsHandler(list []Handler, handler Handler) bool {
	for _, h := range list {
		if h == handler {
			return true
		}
	}
	return false
}
