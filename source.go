package watchdog

import (
	"context"
	"sync"
	"time"
)

// EventSource is the platform boundary: one concrete implementation per
// notification mechanism. An emitter calls Poll once per loop iteration.
type EventSource interface {
	// Poll performs one bounded wait for filesystem activity and returns
	// the events discovered, if any. Returning (nil, nil) means no
	// activity this interval. A non-nil error is fatal for the source:
	// the emitter records it and stops polling. Transient OS errors are
	// the source's own responsibility to absorb or retry.
	Poll(ctx context.Context, timeout time.Duration) ([]Event, error)

	// Close releases the source's resources. Called once after the
	// emitter loop exits.
	Close() error
}

// SourceFactory constructs the EventSource for a watch. The observer calls
// it when an emitter starts, so a factory error surfaces from Schedule (on
// a running observer) or from Start.
type SourceFactory func(watch ObservedWatch) (EventSource, error)

// NewDefaultSource is a SourceFactory that uses the native notification
// source and falls back to stat polling where native watches are
// unavailable (some network mounts and minimal containers).
func NewDefaultSource(watch ObservedWatch) (EventSource, error) {
	if src, err := NewFSNotifySource(watch); err == nil {
		return src, nil
	}
	return NewPollingSource(watch)
}

// ChannelSource is an in-process EventSource fed through Send. It is the
// deterministic source used by the test suite and by embedders that already
// have a change feed of their own. A ChannelSource should back a single
// watch; its Factory method returns the source itself.
type ChannelSource struct {
	ch        chan Event
	closed    chan struct{}
	closeOnce sync.Once
}

// NewChannelSource creates a ChannelSource with the given buffer size.
func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{
		ch:     make(chan Event, buffer),
		closed: make(chan struct{}),
	}
}

// Factory is a SourceFactory returning the source itself.
func (s *ChannelSource) Factory(_ ObservedWatch) (EventSource, error) {
	return s, nil
}

// Send feeds an event to the next Poll. Returns false if the source is
// closed or the buffer is full.
func (s *ChannelSource) Send(event Event) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

// Poll returns the next buffered events, waiting up to timeout for the
// first one. Everything already buffered behind it is returned in the same
// batch.
func (s *ChannelSource) Poll(ctx context.Context, timeout time.Duration) ([]Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var first Event
	select {
	case first = <-s.ch:
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, nil
	case <-s.closed:
		return nil, nil
	}

	events := []Event{first}
	for {
		select {
		case e := <-s.ch:
			events = append(events, e)
		default:
			return events, nil
		}
	}
}

// Close marks the source closed. Subsequent Sends are rejected.
func (s *ChannelSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
