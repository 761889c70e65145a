// Package ledger records reversible engine operations on undo/redo stacks.
//
// Each entry carries forward and backward closures over captured state.
// Entries are resource-scoped (one uri) or workspace-scoped; a workspace
// entry fans out to per-resource closures. Closure failures are logged and
// do not abort the surrounding ledger operation.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/editflow/editflow/internal/logging"
)

// Errors returned by ledger operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultMaxEntries bounds the undo stack when no limit is configured.
const DefaultMaxEntries = 1000

// Entry is a reversible operation.
type Entry struct {
	// Resources are the uris the operation touched.
	Resources []string

	// Label is a human-readable description, e.g. "Accept diff".
	Label string

	// Code identifies the operation kind, e.g. "acceptDiff".
	Code string

	// Undo reverses the operation.
	Undo func() error

	// Redo re-applies the operation.
	Redo func() error
}

// EntryInfo describes a recorded entry without exposing its closures.
type EntryInfo struct {
	Resources []string
	Label     string
	Code      string
	Timestamp time.Time
}

type record struct {
	entry     Entry
	timestamp time.Time
}

// Ledger manages undo/redo state for the engine.
// All methods are thread-safe. The lock is released while entry closures
// run, since they perform document writes.
type Ledger struct {
	mu sync.Mutex

	undoStack []*record
	redoStack []*record

	maxEntries int
	log        *logging.Logger
}

// New creates a ledger bounded to maxEntries undo records.
func New(maxEntries int, log *logging.Logger) *Ledger {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if log == nil {
		log = logging.Null
	}
	return &Ledger{
		maxEntries: maxEntries,
		log:        log.WithComponent("ledger"),
	}
}

// Push records an entry and clears the redo stack.
func (l *Ledger) Push(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.undoStack = append(l.undoStack, &record{entry: e, timestamp: time.Now()})
	l.redoStack = nil

	if len(l.undoStack) > l.maxEntries {
		excess := len(l.undoStack) - l.maxEntries
		l.undoStack = l.undoStack[excess:]
	}
}

// PushWorkspace records a single workspace-scoped entry fanning out to the
// given per-resource entries. Undo runs the sub-entries newest-first, redo
// oldest-first.
func (l *Ledger) PushWorkspace(label, code string, parts []Entry) {
	resources := make([]string, 0, len(parts))
	for _, p := range parts {
		resources = append(resources, p.Resources...)
	}

	l.Push(Entry{
		Resources: resources,
		Label:     label,
		Code:      code,
		Undo: func() error {
			for i := len(parts) - 1; i >= 0; i-- {
				l.runClosure(parts[i].Code, "undo", parts[i].Undo)
			}
			return nil
		},
		Redo: func() error {
			for i := range parts {
				l.runClosure(parts[i].Code, "redo", parts[i].Redo)
			}
			return nil
		},
	})
}

// Undo reverses the most recent entry.
func (l *Ledger) Undo() error {
	l.mu.Lock()
	if len(l.undoStack) == 0 {
		l.mu.Unlock()
		return ErrNothingToUndo
	}
	rec := l.undoStack[len(l.undoStack)-1]
	l.undoStack = l.undoStack[:len(l.undoStack)-1]
	l.mu.Unlock()

	l.runClosure(rec.entry.Code, "undo", rec.entry.Undo)

	l.mu.Lock()
	l.redoStack = append(l.redoStack, rec)
	l.mu.Unlock()
	return nil
}

// Redo re-applies the most recently undone entry.
func (l *Ledger) Redo() error {
	l.mu.Lock()
	if len(l.redoStack) == 0 {
		l.mu.Unlock()
		return ErrNothingToRedo
	}
	rec := l.redoStack[len(l.redoStack)-1]
	l.redoStack = l.redoStack[:len(l.redoStack)-1]
	l.mu.Unlock()

	l.runClosure(rec.entry.Code, "redo", rec.entry.Redo)

	l.mu.Lock()
	l.undoStack = append(l.undoStack, rec)
	l.mu.Unlock()
	return nil
}

// runClosure executes an entry closure, logging rather than propagating
// failures.
func (l *Ledger) runClosure(code, direction string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		l.log.Warn("%s closure for %s failed: %v", direction, code, err)
	}
}

// CanUndo returns true if undo is available.
func (l *Ledger) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (l *Ledger) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.redoStack) > 0
}

// UndoCount returns the number of undoable entries.
func (l *Ledger) UndoCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undoStack)
}

// RedoCount returns the number of redoable entries.
func (l *Ledger) RedoCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.redoStack)
}

// PeekUndo returns info about the next undo entry without removing it.
func (l *Ledger) PeekUndo() (EntryInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.undoStack) == 0 {
		return EntryInfo{}, false
	}
	rec := l.undoStack[len(l.undoStack)-1]
	return EntryInfo{
		Resources: rec.entry.Resources,
		Label:     rec.entry.Label,
		Code:      rec.entry.Code,
		Timestamp: rec.timestamp,
	}, true
}

// Clear removes all undo/redo state.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.undoStack = nil
	l.redoStack = nil
}
