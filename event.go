package watchdog

import (
	"context"
	"fmt"
	"strings"
)

// Op is a bitmask of filesystem change kinds. A single Event carries exactly
// one bit; an ObservedWatch filter may combine several.
type Op uint32

const (
	// Create indicates a file or directory was created.
	Create Op = 1 << iota

	// Write indicates a file's contents or metadata-visible size changed.
	Write

	// Remove indicates a file or directory was deleted.
	Remove

	// Rename indicates a file or directory was moved. Event.OldPath holds
	// the previous path when the platform source can resolve it.
	Rename

	// Chmod indicates a permission or attribute change.
	Chmod
)

// AllOps matches every change kind. The zero Op used as a filter means the
// same thing; AllOps exists for callers who prefer to be explicit.
const AllOps = Create | Write | Remove | Rename | Chmod

// opNames is kept alphabetical so rendered filters are stable.
var opNames = []struct {
	op   Op
	name string
}{
	{Chmod, "CHMOD"},
	{Create, "CREATE"},
	{Remove, "REMOVE"},
	{Rename, "RENAME"},
	{Write, "WRITE"},
}

// Has reports whether o contains every bit of q.
func (o Op) Has(q Op) bool {
	return o&q == q
}

// String returns the sorted pipe-joined names of the kinds in o.
func (o Op) String() string {
	if o == 0 {
		return "NONE"
	}
	parts := make([]string, 0, len(opNames))
	for _, n := range opNames {
		if o.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Event is a single filesystem change. Events are plain comparable values:
// the dispatch queue relies on == to collapse consecutive duplicates.
type Event struct {
	// Op is the change kind. Exactly one bit is set.
	Op Op

	// Path is the affected path.
	Path string

	// OldPath is the source path of a rename, empty for other kinds.
	OldPath string

	// IsDir reports whether the affected path is a directory.
	IsDir bool
}

// String returns a diagnostic rendering of the event.
func (e Event) String() string {
	if e.OldPath != "" {
		return fmt.Sprintf("%s %q -> %q", e.Op, e.OldPath, e.Path)
	}
	return fmt.Sprintf("%s %q", e.Op, e.Path)
}

// Handler consumes dispatched events. Handlers run one at a time on the
// observer's single consumer goroutine; a handler must not block
// indefinitely, since it stalls all delivery while running. Handlers may
// call back into Schedule, Unschedule, AddHandler, and RemoveHandler from
// inside HandleEvent.
//
// Handlers are identified by interface equality in the registries, so
// implementations must be comparable; in practice, pointer receivers.
type Handler interface {
	HandleEvent(ctx context.Context, event Event) error
}

type funcHandler struct {
	fn func(ctx context.Context, event Event) error
}

func (h *funcHandler) HandleEvent(ctx context.Context, event Event) error {
	return h.fn(ctx, event)
}

// FuncHandler wraps fn as a Handler. Each call returns a distinct handler
// identity, so the same function can be registered twice as two handlers.
func FuncHandler(fn func(ctx context.Context, event Event) error) Handler {
	return &funcHandler{fn: fn}
}
