package watchdog

import "fmt"

// ObservedWatch identifies a scheduled watch: a path, whether subdirectories
// are included, and an optional change-kind filter. It is a plain comparable
// value: two watches with identical fields are the same watch, share one
// emitter, and collide as registry keys.
type ObservedWatch struct {
	// Path is the watched path.
	Path string

	// Recursive reports whether subdirectories are watched too.
	Recursive bool

	// Filter restricts the kinds delivered for this watch.
	// Zero means all kinds.
	Filter Op
}

// Accepts reports whether an event of kind op passes the watch filter.
func (w ObservedWatch) Accepts(op Op) bool {
	return w.Filter == 0 || w.Filter.Has(op)
}

// String returns a diagnostic rendering including the path, the recursion
// flag, and the sorted filter kind names when a filter is set.
func (w ObservedWatch) String() string {
	if w.Filter != 0 {
		return fmt.Sprintf("<ObservedWatch: path=%q, recursive=%v, filter=%s>", w.Path, w.Recursive, w.Filter)
	}
	return fmt.Sprintf("<ObservedWatch: path=%q, recursive=%v>", w.Path, w.Recursive)
}
