package document

import (
	"errors"
	"sort"
	"sync"
)

// ErrModelNotFound indicates no model exists for a uri.
var ErrModelNotFound = errors.New("document model not found")

// Store holds the open document models, keyed by uri.
// All methods are thread-safe.
type Store struct {
	mu     sync.RWMutex
	models map[string]*Model

	// systemWrites counts engine-initiated writes in flight.
	systemWrites int
}

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{
		models: make(map[string]*Model),
	}
}

// Open creates a model for uri with the given content.
// An existing model for the same uri is replaced.
func (s *Store) Open(uri, content string) *Model {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := NewModel(uri, content)
	s.models[uri] = m
	return m
}

// Get returns the model for uri, if present.
func (s *Store) Get(uri string) (*Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[uri]
	return m, ok
}

// Value returns the current text of the model for uri, if present.
func (s *Store) Value(uri string) (string, bool) {
	s.mu.RLock()
	m, ok := s.models[uri]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return m.Value(), true
}

// Close removes the model for uri.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.models, uri)
}

// URIs returns all open uris in sorted order.
func (s *Store) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.models))
	for uri := range s.models {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Count returns the number of open models.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

// BeginSystemWrite marks the start of an engine-initiated write.
// Listeners observing document changes while IsSystemWrite reports true must
// not trigger re-entrant recomputation. Calls nest.
func (s *Store) BeginSystemWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systemWrites++
}

// EndSystemWrite marks the end of an engine-initiated write.
func (s *Store) EndSystemWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.systemWrites > 0 {
		s.systemWrites--
	}
}

// IsSystemWrite reports whether an engine-initiated write is in flight.
func (s *Store) IsSystemWrite() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systemWrites > 0
}
