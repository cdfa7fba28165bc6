package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
)

// worker runs a cooperative loop on its own goroutine. Cancellation is
// requested through the loop's context and observed by the loop at its next
// poll boundary; there is no forced interruption. A worker may be started
// again after it has fully stopped.
type worker struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32
}

// start launches loop on a new goroutine. final, if non-nil, runs once on
// that goroutine after the loop exits and before join is released.
// Starting a running worker is a no-op; the owner is expected to prevent it.
func (w *worker) start(ctx context.Context, loop func(context.Context), final func()) {
	w.mu.Lock()
	switch State(w.state.Load()) {
	case StateRunning, StateStopping:
		w.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.state.Store(int32(StateRunning))
	w.mu.Unlock()

	go func() {
		defer close(done)
		loop(runCtx)
		w.state.Store(int32(StateStopped))
		if final != nil {
			final()
		}
	}()
}

// stop requests cancellation. Safe to call at any time, any number of times.
func (w *worker) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if State(w.state.Load()) == StateRunning && w.cancel != nil {
		w.state.Store(int32(StateStopping))
		w.cancel()
	}
}

// alive reports whether the loop goroutine has started and not yet exited.
func (w *worker) alive() bool {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// join blocks until the loop goroutine exits. Joining a never-started or
// already-joined worker returns immediately.
func (w *worker) join() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

// currentState returns the worker's lifecycle state.
func (w *worker) currentState() State {
	return State(w.state.Load())
}
