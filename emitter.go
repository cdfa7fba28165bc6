package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// DefaultTimeout is the default poll timeout for emitters and the
// observer's consumer loop.
const DefaultTimeout = time.Second

// EventEmitter is the producer side of the pipeline: one per distinct
// ObservedWatch, regardless of how many handlers share the watch. It runs a
// cooperative loop that polls a platform source and pushes accepted events
// onto the shared queue. Emitters borrow the queue; they never reference
// the observer that owns them.
type EventEmitter struct {
	queue   *eventQueue
	watch   ObservedWatch
	factory SourceFactory
	timeout time.Duration
	metrics MetricsProvider
	errs    *errorSink

	mu     sync.Mutex
	source EventSource
	w      worker
}

func newEventEmitter(queue *eventQueue, watch ObservedWatch, factory SourceFactory, timeout time.Duration, metrics MetricsProvider, errs *errorSink) *EventEmitter {
	return &EventEmitter{
		queue:   queue,
		watch:   watch,
		factory: factory,
		timeout: timeout,
		metrics: metrics,
		errs:    errs,
	}
}

// Watch returns the watch this emitter produces events for.
func (e *EventEmitter) Watch() ObservedWatch {
	return e.watch
}

// Timeout returns the blocking timeout for one source poll.
func (e *EventEmitter) Timeout() time.Duration {
	return e.timeout
}

// State returns the emitter's lifecycle state.
func (e *EventEmitter) State() State {
	return e.w.currentState()
}

// Alive reports whether the emitter loop is running.
func (e *EventEmitter) Alive() bool {
	return e.w.alive()
}

// start constructs the platform source and launches the poll loop. The
// factory error is returned as-is so the owner can roll the emitter back.
func (e *EventEmitter) start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	source, err := e.factory(e.watch)
	if err != nil {
		return fmt.Errorf("failed to start emitter for %s: %w", e.watch, err)
	}
	e.source = source

	e.w.start(ctx, e.run, func() {
		source.Close()
		capitan.Emit(context.Background(), EmitterStopped,
			KeyWatch.Field(e.watch.String()),
		)
	})
	capitan.Emit(ctx, EmitterStarted,
		KeyWatch.Field(e.watch.String()),
		KeyTimeout.Field(e.timeout),
	)
	return nil
}

// stop requests cancellation; the loop exits at its next poll boundary.
// Stopping a non-running emitter is a no-op.
func (e *EventEmitter) stop() {
	e.w.stop()
}

// join waits for the loop to exit. Safe to call more than once.
func (e *EventEmitter) join() {
	e.w.join()
}

func (e *EventEmitter) run(ctx context.Context) {
	for ctx.Err() == nil {
		events, err := e.source.Poll(ctx, e.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.errs.record(err)
			if e.metrics != nil {
				e.metrics.OnEmitterFailure(e.watch)
			}
			capitan.Emit(ctx, EmitterPollFailed,
				KeyWatch.Field(e.watch.String()),
				KeyError.Field(err.Error()),
			)
			return
		}
		for _, event := range events {
			e.queueEvent(ctx, event)
		}
	}
}

// queueEvent enqueues one event unless the watch filter rejects its kind.
func (e *EventEmitter) queueEvent(ctx context.Context, event Event) {
	if !e.watch.Accepts(event.Op) {
		return
	}
	if e.queue.put(ctx, queueEntry{event: event, watch: e.watch}) {
		if e.metrics != nil {
			e.metrics.OnEventQueued(e.watch)
		}
	}
}
