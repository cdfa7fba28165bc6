package watchdog

import (
	"context"
	"testing"
)

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{0, "NONE"},
		{Create, "CREATE"},
		{Write | Create, "CREATE|WRITE"},
		{Rename | Chmod | Remove, "CHMOD|REMOVE|RENAME"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestOp_Has(t *testing.T) {
	filter := Create | Remove
	if !filter.Has(Create) {
		t.Error("expected filter to contain Create")
	}
	if filter.Has(Write) {
		t.Error("expected filter to not contain Write")
	}
}

func TestEvent_String(t *testing.T) {
	e := Event{Op: Write, Path: "/tmp/a/x"}
	if got := e.String(); got != `WRITE "/tmp/a/x"` {
		t.Errorf("unexpected rendering: %s", got)
	}

	r := Event{Op: Rename, Path: "/tmp/a/y", OldPath: "/tmp/a/x"}
	if got := r.String(); got != `RENAME "/tmp/a/x" -> "/tmp/a/y"` {
		t.Errorf("unexpected rendering: %s", got)
	}
}

func TestFuncHandler_DistinctIdentity(t *testing.T) {
	fn := func(context.Context, Event) error { return nil }

	h1 := FuncHandler(fn)
	h2 := FuncHandler(fn)
	if h1 == h2 {
		t.Error("expected each FuncHandler wrap to have its own identity")
	}
}
