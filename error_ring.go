package watchdog

import (
	"sync"
	"sync/atomic"
)

// errorSink collects dispatch and emitter failures. The observer and its
// emitters share one sink; emitters never reference the observer itself.
type errorSink struct {
	last atomic.Pointer[error]
	ring atomic.Pointer[errorRing]
}

func (s *errorSink) record(err error) {
	e := err
	s.last.Store(&e)
	s.ring.Load().push(err)
}

func (s *errorSink) lastError() error {
	ptr := s.last.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

func (s *errorSink) history() []error {
	return s.ring.Load().recent()
}

// errorRing retains the most recent dispatch and emitter errors.
// A nil ring is valid and retains nothing.
type errorRing struct {
	mu    sync.Mutex
	buf   []error
	next  int
	count int
}

// newErrorRing creates a ring retaining up to size errors.
// Returns nil if size is not positive.
func newErrorRing(size int) *errorRing {
	if size <= 0 {
		return nil
	}
	return &errorRing{buf: make([]error, size)}
}

func (r *errorRing) push(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = err
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// recent returns the retained errors, oldest first.
func (r *errorRing) recent() []error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	out := make([]error, 0, r.count)
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
