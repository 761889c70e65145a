package diffsource

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/editflow/editflow/internal/logging"
)

// Errors returned by source operations.
var (
	// ErrAreaNotFound indicates a diff area was not found.
	ErrAreaNotFound = errors.New("diff area not found")

	// ErrDiffNotFound indicates a diff was not found.
	ErrDiffNotFound = errors.New("diff not found")

	// ErrModelUnavailable indicates the live document could not be read.
	ErrModelUnavailable = errors.New("document model unavailable")
)

// UpdateReason tags a diff area update with its cause.
type UpdateReason string

const (
	// ReasonCompute marks the initial computation of an area's diffs.
	ReasonCompute UpdateReason = "compute"

	// ReasonRecompute marks an area being destroyed and recreated with
	// fresh ids after its diffs were recomputed.
	ReasonRecompute UpdateReason = "recompute"

	// ReasonAccept marks a diff merged into the area baseline.
	ReasonAccept UpdateReason = "accept"

	// ReasonReject marks baseline or snapshot restoration on reject.
	ReasonReject UpdateReason = "reject"

	// ReasonDelete marks a diff record removal.
	ReasonDelete UpdateReason = "delete"

	// ReasonRestore marks areas reinstalled from an undo snapshot.
	ReasonRestore UpdateReason = "restore"

	// ReasonStream marks a streaming state change.
	ReasonStream UpdateReason = "stream"
)

// Update describes a change to a diff area.
type Update struct {
	URI    string
	AreaID AreaID
	Reason UpdateReason
}

// ModelReader reads live document content. Implemented by the document store.
type ModelReader interface {
	// Value returns the full text for uri and whether a model exists.
	Value(uri string) (string, bool)
}

// Source computes and owns diff areas and diffs.
// All methods are thread-safe. Update listeners run outside the source lock,
// in the mutating goroutine.
type Source struct {
	mu     sync.RWMutex
	reader ModelReader
	log    *logging.Logger

	areasByURI map[string]map[AreaID]*Area
	areasByID  map[AreaID]*Area

	nextAreaID AreaID
	nextDiffID DiffID

	subMu   sync.RWMutex
	subs    map[uint64]func(Update)
	nextSub uint64
}

// New creates a diff source reading live content through reader.
func New(reader ModelReader, log *logging.Logger) *Source {
	if log == nil {
		log = logging.Null
	}
	return &Source{
		reader:     reader,
		log:        log.WithComponent("diffsource"),
		areasByURI: make(map[string]map[AreaID]*Area),
		areasByID:  make(map[AreaID]*Area),
		subs:       make(map[uint64]func(Update)),
	}
}

// OnDidUpdateArea registers a listener for area updates.
// The returned function cancels the subscription.
func (s *Source) OnDidUpdateArea(fn func(Update)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Source) emit(updates ...Update) {
	s.subMu.RLock()
	fns := make([]func(Update), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, u := range updates {
		for _, fn := range fns {
			fn(u)
		}
	}
}

// ComputeOptions configures initial diff computation.
type ComputeOptions struct {
	// Streaming marks the area as still being written by its producer.
	Streaming bool
}

// ComputeDiffs creates a diff area for uri covering the whole document,
// baselined on original, with one diff per contiguous change between
// original and modified.
func (s *Source) ComputeDiffs(uri, original, modified string, opts ComputeOptions) *Area {
	s.mu.Lock()

	s.nextAreaID++
	area := &Area{
		ID:                s.nextAreaID,
		URI:               uri,
		Diffs:             make(map[DiffID]*Diff),
		OriginalSnapshot:  original,
		OriginalCode:      original,
		OriginalStartLine: 1,
		StartLine:         1,
		EndLine:           lineCount(modified),
		CreatedAt:         time.Now(),
		Streaming:         opts.Streaming,
	}
	s.populateDiffsLocked(area, computeSpans(original, modified))

	if s.areasByURI[uri] == nil {
		s.areasByURI[uri] = make(map[AreaID]*Area)
	}
	s.areasByURI[uri][area.ID] = area
	s.areasByID[area.ID] = area

	s.mu.Unlock()

	s.emit(Update{URI: uri, AreaID: area.ID, Reason: ReasonCompute})
	return area
}

// populateDiffsLocked materializes spans as diffs owned by area (must hold
// lock). Modified ranges are shifted into live-document coordinates.
func (s *Source) populateDiffsLocked(area *Area, spans []computedSpan) {
	state := StatePending
	if area.Streaming {
		state = StateStreaming
	}

	offset := area.StartLine - 1
	for _, span := range spans {
		s.nextDiffID++
		d := &Diff{
			ID:            s.nextDiffID,
			AreaID:        area.ID,
			URI:           area.URI,
			OriginalRange: span.originalRange,
			ModifiedRange: span.modifiedRange.Shift(offset),
			OriginalCode:  span.originalCode,
			ModifiedCode:  span.modifiedCode,
			State:         state,
		}
		area.Diffs[d.ID] = d
	}
}

// AreasForURI returns the diff areas tracking uri, ordered by id.
func (s *Source) AreasForURI(uri string) []*Area {
	s.mu.RLock()
	defer s.mu.RUnlock()

	areas := make([]*Area, 0, len(s.areasByURI[uri]))
	for _, a := range s.areasByURI[uri] {
		areas = append(areas, a)
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].ID < areas[j].ID })
	return areas
}

// Area returns the diff area with the given id.
func (s *Source) Area(id AreaID) (*Area, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.areasByID[id]
	return a, ok
}

// TrackedURIs returns every uri with at least one diff area, sorted.
func (s *Source) TrackedURIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.areasByURI))
	for uri, areas := range s.areasByURI {
		if len(areas) > 0 {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	return uris
}

// FindDiff locates a diff by id.
func (s *Source) FindDiff(id DiffID) (*Diff, *Area, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.areasByID {
		if d, ok := a.Diffs[id]; ok {
			return d, a, true
		}
	}
	return nil, nil, false
}

// DeleteDiff removes a diff record from its area.
func (s *Source) DeleteDiff(areaID AreaID, diffID DiffID) error {
	s.mu.Lock()
	area, ok := s.areasByID[areaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound
	}
	if _, ok := area.Diffs[diffID]; !ok {
		s.mu.Unlock()
		return ErrDiffNotFound
	}
	delete(area.Diffs, diffID)
	uri := area.URI
	s.mu.Unlock()

	s.emit(Update{URI: uri, AreaID: areaID, Reason: ReasonDelete})
	return nil
}

// MergeAcceptedDiffIntoBaseline advances the area baseline to include the
// diff's modified text. The live document is untouched; sibling diffs'
// original ranges shift by the merge's line delta so they stay valid against
// the new baseline.
func (s *Source) MergeAcceptedDiffIntoBaseline(areaID AreaID, diffID DiffID) error {
	s.mu.Lock()
	area, ok := s.areasByID[areaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound
	}
	d, ok := area.Diffs[diffID]
	if !ok {
		s.mu.Unlock()
		return ErrDiffNotFound
	}

	area.OriginalCode = spliceLines(
		area.OriginalCode, d.OriginalRange.Start, d.OriginalRange.End, d.ModifiedCode)

	snapOffset := area.OriginalStartLine - 1
	area.OriginalSnapshot = spliceLines(
		area.OriginalSnapshot,
		snapOffset+d.OriginalRange.Start, snapOffset+d.OriginalRange.End,
		d.ModifiedCode)

	delta := codeLineCount(d.ModifiedCode) - d.OriginalRange.Len()
	if delta != 0 {
		for _, sibling := range area.Diffs {
			if sibling.ID == d.ID {
				continue
			}
			if sibling.OriginalRange.Start > d.OriginalRange.End {
				sibling.OriginalRange = sibling.OriginalRange.Shift(delta)
			}
		}
	}

	uri := area.URI
	s.mu.Unlock()

	s.emit(Update{URI: uri, AreaID: areaID, Reason: ReasonAccept})
	return nil
}

// UpdateAreaSnapshot rebaselines the area onto content.
func (s *Source) UpdateAreaSnapshot(areaID AreaID, content string) error {
	s.mu.Lock()
	area, ok := s.areasByID[areaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound
	}

	area.OriginalSnapshot = content
	area.OriginalCode = sliceLines(content, area.OriginalStartLine, lineCount(content))
	uri := area.URI
	s.mu.Unlock()

	s.emit(Update{URI: uri, AreaID: areaID, Reason: ReasonAccept})
	return nil
}

// RealignAreaRanges shifts area bounds and diff modified ranges for uri to
// account for a document change at changeRange that grew or shrank the text
// by delta lines. Must run before the diff that caused the change is
// deleted.
func (s *Source) RealignAreaRanges(uri string, changeRange LineRange, delta int) {
	if delta == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, area := range s.areasByURI[uri] {
		if area.StartLine > changeRange.Start {
			area.StartLine += delta
		}
		if area.EndLine >= changeRange.Start {
			area.EndLine += delta
		}
		for _, d := range area.Diffs {
			if d.ModifiedRange.Start > changeRange.Start {
				d.ModifiedRange = d.ModifiedRange.Shift(delta)
			}
		}
	}
}

// RecomputeDiffsForFile destroys every diff area for uri and recreates each
// one, with fresh area and diff ids, from its baseline against the live
// document. Listeners receive one ReasonRecompute update per area.
func (s *Source) RecomputeDiffsForFile(uri string) error {
	live, ok := s.reader.Value(uri)
	if !ok {
		return ErrModelUnavailable
	}

	s.mu.Lock()

	old := make([]*Area, 0, len(s.areasByURI[uri]))
	for _, a := range s.areasByURI[uri] {
		old = append(old, a)
	}
	sort.Slice(old, func(i, j int) bool { return old[i].ID < old[j].ID })

	updates := make([]Update, 0, len(old))
	for _, prev := range old {
		delete(s.areasByURI[uri], prev.ID)
		delete(s.areasByID, prev.ID)

		region := sliceLines(live, prev.StartLine, prev.EndLine)

		s.nextAreaID++
		area := &Area{
			ID:                s.nextAreaID,
			URI:               uri,
			Diffs:             make(map[DiffID]*Diff),
			OriginalSnapshot:  prev.OriginalSnapshot,
			OriginalCode:      prev.OriginalCode,
			OriginalStartLine: prev.OriginalStartLine,
			StartLine:         prev.StartLine,
			EndLine:           prev.EndLine,
			CreatedAt:         prev.CreatedAt,
			Streaming:         prev.Streaming,
		}
		s.populateDiffsLocked(area, computeSpans(area.OriginalCode, region))

		s.areasByURI[uri][area.ID] = area
		s.areasByID[area.ID] = area

		updates = append(updates, Update{URI: uri, AreaID: area.ID, Reason: ReasonRecompute})
	}

	s.mu.Unlock()

	s.emit(updates...)
	return nil
}

// RestoreAreas replaces every area for uri with clones of the given
// snapshot areas, preserving their original area and diff ids.
func (s *Source) RestoreAreas(uri string, areas []*Area) {
	s.mu.Lock()

	for id := range s.areasByURI[uri] {
		delete(s.areasByID, id)
	}
	delete(s.areasByURI, uri)

	if len(areas) > 0 {
		s.areasByURI[uri] = make(map[AreaID]*Area, len(areas))
	}

	updates := make([]Update, 0, len(areas))
	for _, snap := range areas {
		restored := snap.Clone()
		s.areasByURI[uri][restored.ID] = restored
		s.areasByID[restored.ID] = restored

		// Keep id allocation ahead of everything ever restored.
		if restored.ID >= s.nextAreaID {
			s.nextAreaID = restored.ID
		}
		for id := range restored.Diffs {
			if id >= s.nextDiffID {
				s.nextDiffID = id
			}
		}

		updates = append(updates, Update{URI: uri, AreaID: restored.ID, Reason: ReasonRestore})
	}

	s.mu.Unlock()

	s.emit(updates...)
}

// AbortStreaming clears the in-flight writer mark on an area and moves its
// streaming diffs to pending. Call before rejecting or undoing a region a
// producer may still be writing.
func (s *Source) AbortStreaming(areaID AreaID) error {
	s.mu.Lock()
	area, ok := s.areasByID[areaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound
	}

	area.Streaming = false
	for _, d := range area.Diffs {
		if d.State == StateStreaming {
			d.State = StatePending
		}
	}
	uri := area.URI
	s.mu.Unlock()

	s.emit(Update{URI: uri, AreaID: areaID, Reason: ReasonStream})
	return nil
}

// DeleteAreasForURI removes every diff area for uri without emitting
// updates. Used when a document is closed.
func (s *Source) DeleteAreasForURI(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.areasByURI[uri] {
		delete(s.areasByID, id)
	}
	delete(s.areasByURI, uri)
}

// Reset discards all areas and id state. Session-scoped lifecycle hook for
// tests and engine reset.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.areasByURI = make(map[string]map[AreaID]*Area)
	s.areasByID = make(map[AreaID]*Area)
	s.nextAreaID = 0
	s.nextDiffID = 0
}

// codeLineCount counts lines in diff code text, where empty code means zero
// lines rather than one empty line.
func codeLineCount(code string) int {
	if code == "" {
		return 0
	}
	return strings.Count(code, "\n") + 1
}
