package transaction

import (
	"fmt"

	"github.com/editflow/editflow/internal/engine/diffsource"
	"github.com/editflow/editflow/internal/engine/document"
)

// uriSnapshot captures everything needed to restore a uri's review state:
// the full live text, deep copies of every diff area (diff ids included),
// the overlay entries, and the session counters. Diff ids are not stable
// across recompute, so undo cannot re-resolve records by id; it restores
// this snapshot wholesale instead.
type uriSnapshot struct {
	uri     string
	text    string
	areas   []*diffsource.Area
	overlay map[diffsource.DiffID]diffsource.DiffState
	counts  resolvedCounts
}

// captureSnapshot records the uri's full state before any mutation.
func (m *Manager) captureSnapshot(uri string, model *document.Model) *uriSnapshot {
	live := m.source.AreasForURI(uri)
	areas := make([]*diffsource.Area, 0, len(live))
	for _, a := range live {
		areas = append(areas, a.Clone())
	}

	m.mu.Lock()
	counts := m.resolved[uri]
	m.mu.Unlock()

	return &uriSnapshot{
		uri:     uri,
		text:    model.Value(),
		areas:   areas,
		overlay: m.overlay.StatesForURI(uri),
		counts:  counts,
	}
}

// restoreSnapshot rewrites the live document in one replace, reinstalls
// every diff area verbatim with its original ids, and restores overlay
// state and counters. Recompute is skipped: the restored diffs are already
// correct against the restored baseline, and a fresh recompute could
// discard them.
func (m *Manager) restoreSnapshot(snap *uriSnapshot) error {
	model, ok := m.store.Get(snap.uri)
	if !ok {
		return fmt.Errorf("restore %s: %w", snap.uri, document.ErrModelNotFound)
	}

	// Every current area is about to be discarded; an in-flight producer
	// still writing into one must be stopped first, same as a reject.
	for _, a := range m.source.AreasForURI(snap.uri) {
		if a.Streaming {
			if err := m.source.AbortStreaming(a.ID); err != nil {
				m.log.Warn("restore %s: abort streaming area %d: %v", snap.uri, a.ID, err)
			}
		}
	}

	m.store.BeginSystemWrite()
	_, err := model.Replace(model.FullRange(), snap.text)
	m.store.EndSystemWrite()
	if err != nil {
		return fmt.Errorf("restore %s: %w", snap.uri, err)
	}

	m.source.RestoreAreas(snap.uri, snap.areas)
	m.overlay.RestoreForURI(snap.uri, snap.overlay)

	m.mu.Lock()
	m.resolved[snap.uri] = snap.counts
	m.mu.Unlock()

	m.notifySummaries(snap.uri)
	return nil
}
