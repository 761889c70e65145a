// Package checkpoint provides point-in-time snapshots of tracked files and
// their diff areas. Checkpoints are immutable after creation and are keyed
// by a fresh id plus a per-store monotonic epoch.
package checkpoint

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/editflow/editflow/internal/engine/diffsource"
)

// ErrNotFound indicates no checkpoint exists for an id.
var ErrNotFound = errors.New("checkpoint not found")

// ID uniquely identifies a checkpoint.
type ID string

// Checkpoint is an immutable snapshot. Callers must not mutate its maps.
type Checkpoint struct {
	ID    ID
	Epoch uint64
	Label string

	// FileSnapshots maps uri to full file text at checkpoint time.
	FileSnapshots map[string]string

	// AreaSnapshots holds deep copies of every tracked diff area.
	AreaSnapshots map[diffsource.AreaID]*diffsource.Area

	Timestamp   time.Time
	Description string
}

// Store holds checkpoints for one engine session.
// All methods are thread-safe.
type Store struct {
	mu          sync.RWMutex
	epoch       uint64
	checkpoints map[ID]*Checkpoint
}

// NewStore creates an empty checkpoint store.
func NewStore() *Store {
	return &Store{
		checkpoints: make(map[ID]*Checkpoint),
	}
}

// Create allocates the next epoch and stores a checkpoint over the given
// file contents and diff areas. Inputs are deep-copied; later mutation of
// the arguments does not affect the checkpoint.
func (s *Store) Create(label string, files map[string]string, areas []*diffsource.Area, description string) *Checkpoint {
	fileSnaps := make(map[string]string, len(files))
	for uri, text := range files {
		fileSnaps[uri] = text
	}

	areaSnaps := make(map[diffsource.AreaID]*diffsource.Area, len(areas))
	for _, a := range areas {
		areaSnaps[a.ID] = a.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	cp := &Checkpoint{
		ID:            ID(uuid.NewString()),
		Epoch:         s.epoch,
		Label:         label,
		FileSnapshots: fileSnaps,
		AreaSnapshots: areaSnaps,
		Timestamp:     time.Now(),
		Description:   description,
	}
	s.checkpoints[cp.ID] = cp
	return cp
}

// Get returns the checkpoint with the given id.
func (s *Store) Get(id ID) (*Checkpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[id]
	return cp, ok
}

// GetAll returns all checkpoints ordered by epoch.
func (s *Store) GetAll() []*Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Epoch < all[j].Epoch })
	return all
}

// Count returns the number of stored checkpoints.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}

// Epoch returns the last allocated epoch.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Reset discards all checkpoints and restarts the epoch counter.
// Session-scoped lifecycle hook for tests and engine reset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch = 0
	s.checkpoints = make(map[ID]*Checkpoint)
}
