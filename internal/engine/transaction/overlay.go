package transaction

import (
	"sync"

	"github.com/editflow/editflow/internal/engine/diffsource"
)

// Overlay is the authoritative review state for diffs, layered over the
// diff source's read-only records. The source's Diff.State never changes
// after creation; every transition the manager performs is written here and
// reads resolve overlay-over-source.
//
// This is a migration shim: it exists because the source exposes no native
// state-update operation. Entries are pruned when a recompute destroys the
// ids they shadow.
type Overlay struct {
	mu      sync.RWMutex
	entries map[diffsource.DiffID]overlayEntry
}

type overlayEntry struct {
	uri   string
	state diffsource.DiffState
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		entries: make(map[diffsource.DiffID]overlayEntry),
	}
}

// Set records the review state for a diff id.
func (o *Overlay) Set(id diffsource.DiffID, uri string, state diffsource.DiffState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[id] = overlayEntry{uri: uri, state: state}
}

// Resolve returns the overlay state for the diff if present, otherwise the
// source's own state.
func (o *Overlay) Resolve(d *diffsource.Diff) diffsource.DiffState {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if e, ok := o.entries[d.ID]; ok {
		return e.state
	}
	return d.State
}

// Get returns the overlay state for an id, if any.
func (o *Overlay) Get(id diffsource.DiffID) (diffsource.DiffState, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	e, ok := o.entries[id]
	return e.state, ok
}

// Delete removes the entry for an id.
func (o *Overlay) Delete(id diffsource.DiffID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, id)
}

// PruneMissing reconciles the overlay against the ids currently present for
// uri, deleting every entry whose id a recompute has destroyed. Returns the
// number of entries removed.
func (o *Overlay) PruneMissing(uri string, present map[diffsource.DiffID]struct{}) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for id, e := range o.entries {
		if e.uri != uri {
			continue
		}
		if _, ok := present[id]; !ok {
			delete(o.entries, id)
			removed++
		}
	}
	return removed
}

// StatesForURI returns a copy of the overlay entries for uri, for snapshot
// capture.
func (o *Overlay) StatesForURI(uri string) map[diffsource.DiffID]diffsource.DiffState {
	o.mu.RLock()
	defer o.mu.RUnlock()

	states := make(map[diffsource.DiffID]diffsource.DiffState)
	for id, e := range o.entries {
		if e.uri == uri {
			states[id] = e.state
		}
	}
	return states
}

// RestoreForURI replaces every entry for uri with the given states.
func (o *Overlay) RestoreForURI(uri string, states map[diffsource.DiffID]diffsource.DiffState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, e := range o.entries {
		if e.uri == uri {
			delete(o.entries, id)
		}
	}
	for id, state := range states {
		o.entries[id] = overlayEntry{uri: uri, state: state}
	}
}

// Len returns the number of overlay entries.
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}

// Reset discards all entries.
func (o *Overlay) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = make(map[diffsource.DiffID]overlayEntry)
}
