package diffsource

import (
	"fmt"
	"sort"
	"time"
)

// DiffID uniquely identifies a diff within a Source instance.
type DiffID uint64

// AreaID uniquely identifies a diff area within a Source instance.
type AreaID uint64

// DiffState is the review state of a diff.
type DiffState uint8

const (
	// StatePending means the diff awaits a review decision.
	StatePending DiffState = iota

	// StateStreaming means the diff's region is still being written by an
	// in-flight external producer.
	StateStreaming

	// StateAccepted means the diff was accepted into the baseline.
	StateAccepted

	// StateRejected means the diff was rejected and its region reverted.
	StateRejected
)

// String returns a human-readable representation of the state.
func (s DiffState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// IsTerminal returns true for accepted or rejected.
func (s DiffState) IsTerminal() bool {
	return s == StateAccepted || s == StateRejected
}

// LineRange is an inclusive span of 1-based lines.
// An empty range has End = Start-1 and marks the position before line Start
// rather than a span of lines.
type LineRange struct {
	Start int
	End   int
}

// EmptyLineRange returns an empty range anchored before the given line.
func EmptyLineRange(before int) LineRange {
	return LineRange{Start: before, End: before - 1}
}

// String returns a human-readable representation of the range.
func (r LineRange) String() string {
	if r.IsEmpty() {
		return fmt.Sprintf("[@%d]", r.Start)
	}
	return fmt.Sprintf("[%d-%d]", r.Start, r.End)
}

// IsEmpty returns true if the range spans no lines.
func (r LineRange) IsEmpty() bool {
	return r.End < r.Start
}

// Len returns the number of lines spanned.
func (r LineRange) Len() int {
	if r.IsEmpty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Shift returns the range moved by delta lines.
func (r LineRange) Shift(delta int) LineRange {
	return LineRange{Start: r.Start + delta, End: r.End + delta}
}

// Diff is a single proposed change to a contiguous line span.
// Exactly one of OriginalRange/ModifiedRange is empty (insertion or
// deletion), or neither is (edit); never both.
type Diff struct {
	ID     DiffID
	AreaID AreaID
	URI    string

	// OriginalRange is the affected span in the area's baseline region.
	OriginalRange LineRange

	// ModifiedRange is the affected span in the live document.
	ModifiedRange LineRange

	// OriginalCode is the baseline text of the span, without a trailing
	// newline. Empty for insertions.
	OriginalCode string

	// ModifiedCode is the live text of the span, without a trailing
	// newline. Empty for deletions.
	ModifiedCode string

	State DiffState
}

// IsInsertion returns true if the diff inserts lines.
func (d *Diff) IsInsertion() bool {
	return d.OriginalRange.IsEmpty() && !d.ModifiedRange.IsEmpty()
}

// IsDeletion returns true if the diff deletes lines.
func (d *Diff) IsDeletion() bool {
	return !d.OriginalRange.IsEmpty() && d.ModifiedRange.IsEmpty()
}

// IsEdit returns true if the diff replaces lines.
func (d *Diff) IsEdit() bool {
	return !d.OriginalRange.IsEmpty() && !d.ModifiedRange.IsEmpty()
}

// Clone returns a deep copy of the diff.
func (d *Diff) Clone() *Diff {
	c := *d
	return &c
}

// Area is a tracked region of a document owning diffs against one baseline.
type Area struct {
	ID  AreaID
	URI string

	// Diffs holds the area's diffs keyed by id.
	Diffs map[DiffID]*Diff

	// OriginalSnapshot is the full-file baseline text.
	OriginalSnapshot string

	// OriginalCode is the baseline text of just this region.
	OriginalCode string

	// OriginalStartLine is the region's first line within the baseline
	// snapshot.
	OriginalStartLine int

	// StartLine and EndLine bound the region in the live document.
	StartLine int
	EndLine   int

	CreatedAt time.Time

	// Streaming marks an in-flight external writer for this region.
	Streaming bool
}

// DiffsSorted returns the area's diffs ordered by ModifiedRange start.
func (a *Area) DiffsSorted() []*Diff {
	diffs := make([]*Diff, 0, len(a.Diffs))
	for _, d := range a.Diffs {
		diffs = append(diffs, d)
	}
	sortDiffs(diffs)
	return diffs
}

// Clone returns a deep copy of the area including its diffs map.
// Undo snapshots and checkpoints hold clones, never live records.
func (a *Area) Clone() *Area {
	c := *a
	c.Diffs = make(map[DiffID]*Diff, len(a.Diffs))
	for id, d := range a.Diffs {
		c.Diffs[id] = d.Clone()
	}
	return &c
}

func sortDiffs(diffs []*Diff) {
	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i].ModifiedRange.Start < diffs[j].ModifiedRange.Start
	})
}
