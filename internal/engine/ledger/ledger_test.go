package ledger

import (
	"errors"
	"testing"
)

// TestPushUndoRedo tests the basic stack discipline
func TestPushUndoRedo(t *testing.T) {
	t.Run("undo runs the entry closure", func(t *testing.T) {
		l := New(0, nil)

		var calls []string
		l.Push(Entry{
			Resources: []string{"file:///a.txt"},
			Label:     "Accept diff",
			Code:      "acceptDiff",
			Undo:      func() error { calls = append(calls, "undo"); return nil },
			Redo:      func() error { calls = append(calls, "redo"); return nil },
		})

		if !l.CanUndo() || l.CanRedo() {
			t.Fatal("expected undo available, redo empty")
		}
		if err := l.Undo(); err != nil {
			t.Fatalf("Undo failed: %v", err)
		}
		if err := l.Redo(); err != nil {
			t.Fatalf("Redo failed: %v", err)
		}
		if len(calls) != 2 || calls[0] != "undo" || calls[1] != "redo" {
			t.Errorf("unexpected closure calls %v", calls)
		}
	})

	t.Run("empty stacks error", func(t *testing.T) {
		l := New(0, nil)
		if err := l.Undo(); !errors.Is(err, ErrNothingToUndo) {
			t.Errorf("expected ErrNothingToUndo, got %v", err)
		}
		if err := l.Redo(); !errors.Is(err, ErrNothingToRedo) {
			t.Errorf("expected ErrNothingToRedo, got %v", err)
		}
	})

	t.Run("push clears redo", func(t *testing.T) {
		l := New(0, nil)
		l.Push(Entry{Code: "first"})
		if err := l.Undo(); err != nil {
			t.Fatalf("Undo failed: %v", err)
		}
		l.Push(Entry{Code: "second"})
		if l.CanRedo() {
			t.Error("redo stack must clear on push")
		}
	})

	t.Run("failing closure still moves the entry", func(t *testing.T) {
		l := New(0, nil)
		l.Push(Entry{
			Code: "acceptFile",
			Undo: func() error { return errors.New("boom") },
		})

		if err := l.Undo(); err != nil {
			t.Fatalf("Undo must not propagate closure errors, got %v", err)
		}
		if l.CanUndo() {
			t.Error("entry must leave the undo stack")
		}
		if !l.CanRedo() {
			t.Error("entry must join the redo stack")
		}
	})

	t.Run("stack bounded to max entries", func(t *testing.T) {
		l := New(2, nil)
		l.Push(Entry{Code: "a"})
		l.Push(Entry{Code: "b"})
		l.Push(Entry{Code: "c"})
		if l.UndoCount() != 2 {
			t.Errorf("expected 2 entries, got %d", l.UndoCount())
		}

		info, ok := l.PeekUndo()
		if !ok || info.Code != "c" {
			t.Errorf("expected newest entry on top, got %+v", info)
		}
	})
}

// TestPushWorkspace tests workspace-scoped fan-out entries
func TestPushWorkspace(t *testing.T) {
	l := New(0, nil)

	var order []string
	part := func(uri string) Entry {
		return Entry{
			Resources: []string{uri},
			Code:      "acceptFile",
			Undo:      func() error { order = append(order, "undo:"+uri); return nil },
			Redo:      func() error { order = append(order, "redo:"+uri); return nil },
		}
	}
	l.PushWorkspace("Accept all", "acceptAll", []Entry{part("a"), part("b")})

	if l.UndoCount() != 1 {
		t.Fatalf("expected a single workspace entry, got %d", l.UndoCount())
	}
	info, _ := l.PeekUndo()
	if len(info.Resources) != 2 {
		t.Errorf("expected both resources on the entry, got %v", info.Resources)
	}

	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if err := l.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}

	want := []string{"undo:b", "undo:a", "redo:a", "redo:b"}
	if len(order) != len(want) {
		t.Fatalf("unexpected call order %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}
