package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// defaultQueueCapacity bounds queue memory. Producers block (cancellably)
// once the backlog reaches this size.
const defaultQueueCapacity = 1024

// queueEntry pairs an event with its originating watch. Entries are plain
// comparable values so the skip-repeats check is a single ==.
type queueEntry struct {
	event Event
	watch ObservedWatch

	// stop marks the sentinel that wakes a blocked consumer during
	// shutdown. Sentinels bypass the skip-repeats check, the drain
	// tracker, and the enqueue mutex.
	stop bool
}

// eventQueue is the shared FIFO between emitters and the consumer loop.
// An enqueue equal to the single most recently enqueued entry is silently
// dropped; the comparison is against the last enqueued entry only, so a
// run of identical consecutive events collapses to one while a repeat
// separated by any other event is preserved.
type eventQueue struct {
	ch chan queueEntry

	// mu fuses the duplicate check with the enqueue so concurrent
	// producers cannot interleave between compare and send.
	mu      sync.Mutex
	last    queueEntry
	hasLast bool

	workMu     sync.Mutex
	drained    *sync.Cond
	unfinished int
}

func newEventQueue(capacity int) *eventQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	q := &eventQueue{ch: make(chan queueEntry, capacity)}
	q.drained = sync.NewCond(&q.workMu)
	return q
}

// put enqueues e, blocking while the queue is full. Returns whether the
// entry was actually enqueued: a skipped duplicate and a cancellation both
// return false. Stop sentinels never touch the mutex; a producer parked on
// a full queue would otherwise hold it across the send and block the
// shutdown path.
func (q *eventQueue) put(ctx context.Context, e queueEntry) bool {
	if e.stop {
		select {
		case q.ch <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.hasLast && e == q.last {
		return false
	}

	q.track()
	select {
	case q.ch <- e:
		q.last = e
		q.hasLast = true
		return true
	case <-ctx.Done():
		q.untrack()
		return false
	}
}

// tryPut enqueues e without blocking, not even on the mutex for a stop
// sentinel. Returns false when nothing was enqueued: a full queue (which
// callers on the shutdown path treat as non-fatal) or a skipped duplicate.
func (q *eventQueue) tryPut(e queueEntry) bool {
	if e.stop {
		select {
		case q.ch <- e:
			return true
		default:
			return false
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.hasLast && e == q.last {
		return false
	}

	q.track()
	select {
	case q.ch <- e:
		q.last = e
		q.hasLast = true
		return true
	default:
		q.untrack()
		return false
	}
}

// get waits up to timeout for an entry in FIFO order. The second return is
// false when nothing arrived before the timeout elapsed, which is ordinary
// control flow rather than an error.
func (q *eventQueue) get(clock clockz.Clock, timeout time.Duration) (queueEntry, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
	}

	timer := clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e := <-q.ch:
		return e, true
	case <-timer.C():
		return queueEntry{}, false
	}
}

func (q *eventQueue) track() {
	q.workMu.Lock()
	q.unfinished++
	q.workMu.Unlock()
}

func (q *eventQueue) untrack() {
	q.workMu.Lock()
	q.unfinished--
	if q.unfinished <= 0 {
		q.drained.Broadcast()
	}
	q.workMu.Unlock()
}

// taskDone marks one previously gotten entry as processed.
func (q *eventQueue) taskDone() {
	q.untrack()
}

// wait blocks until every enqueued entry has been marked done. Used by
// shutdown drains, not required for ordinary delivery.
func (q *eventQueue) wait() {
	q.workMu.Lock()
	for q.unfinished > 0 {
		q.drained.Wait()
	}
	q.workMu.Unlock()
}
