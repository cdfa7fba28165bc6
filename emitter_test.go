package watchdog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestEmitter_QueuesPolledEvents(t *testing.T) {
	src := NewChannelSource(16)
	q := newEventQueue(16)
	watch := ObservedWatch{Path: "/tmp/a"}
	em := newEventEmitter(q, watch, src.Factory, 50*time.Millisecond, nil, &errorSink{})

	if err := em.start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer func() {
		em.stop()
		em.join()
	}()

	src.Send(Event{Op: Create, Path: "/tmp/a/x"})

	entry, ok := q.get(clockz.RealClock, time.Second)
	if !ok {
		t.Fatal("timeout waiting for queued event")
	}
	if entry.event.Path != "/tmp/a/x" || entry.watch != watch {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestEmitter_FilterDropsKinds(t *testing.T) {
	src := NewChannelSource(16)
	q := newEventQueue(16)
	watch := ObservedWatch{Path: "/tmp/a", Filter: Create}
	em := newEventEmitter(q, watch, src.Factory, 50*time.Millisecond, nil, &errorSink{})

	if err := em.start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer func() {
		em.stop()
		em.join()
	}()

	src.Send(Event{Op: Write, Path: "/tmp/a/dropped"})
	src.Send(Event{Op: Create, Path: "/tmp/a/kept"})

	entry, ok := q.get(clockz.RealClock, time.Second)
	if !ok {
		t.Fatal("timeout waiting for queued event")
	}
	if entry.event.Path != "/tmp/a/kept" {
		t.Errorf("expected filtered-out event to be dropped, got %+v", entry.event)
	}
}

func TestEmitter_FactoryErrorPropagates(t *testing.T) {
	boom := errors.New("no such watchable")
	factory := func(ObservedWatch) (EventSource, error) { return nil, boom }
	em := newEventEmitter(newEventQueue(4), ObservedWatch{Path: "/nope"}, factory, 50*time.Millisecond, nil, &errorSink{})

	err := em.start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
	if em.Alive() {
		t.Error("expected emitter to not be alive after failed start")
	}
}

func TestEmitter_FatalPollErrorStopsLoop(t *testing.T) {
	boom := errors.New("watched path deleted")
	src := &failingSource{err: boom}
	sink := &errorSink{}
	em := newEventEmitter(newEventQueue(4), ObservedWatch{Path: "/tmp/a"}, func(ObservedWatch) (EventSource, error) { return src, nil }, 10*time.Millisecond, nil, sink)

	if err := em.start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	em.join()

	if em.Alive() {
		t.Error("expected loop to exit on fatal poll error")
	}
	if !errors.Is(sink.lastError(), boom) {
		t.Errorf("expected fatal error recorded, got %v", sink.lastError())
	}
}

func TestEmitter_StopLatencyBounded(t *testing.T) {
	src := NewChannelSource(1)
	em := newEventEmitter(newEventQueue(4), ObservedWatch{Path: "/tmp/a"}, src.Factory, 50*time.Millisecond, nil, &errorSink{})

	if err := em.start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	start := time.Now()
	em.stop()
	em.join()
	em.join() // second join is tolerated

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("stop took %v, expected a small multiple of the poll timeout", elapsed)
	}
}

// failingSource fails every poll.
type failingSource struct {
	err error
}

func (s *failingSource) Poll(context.Context, time.Duration) ([]Event, error) {
	return nil, s.err
}

func (s *failingSource) Close() error { return nil }
