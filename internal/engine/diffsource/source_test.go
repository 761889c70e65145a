package diffsource

import (
	"errors"
	"testing"
)

// fakeReader serves live document content for source tests.
type fakeReader struct {
	docs map[string]string
}

func newFakeReader() *fakeReader {
	return &fakeReader{docs: make(map[string]string)}
}

func (r *fakeReader) Value(uri string) (string, bool) {
	text, ok := r.docs[uri]
	return text, ok
}

const testURI = "file:///main.go"

// TestComputeDiffs tests initial area creation
func TestComputeDiffs(t *testing.T) {
	t.Run("whole file area with one diff per change", func(t *testing.T) {
		reader := newFakeReader()
		reader.docs[testURI] = "a\nB\nc\n"
		s := New(reader, nil)

		area := s.ComputeDiffs(testURI, "a\nb\nc\n", "a\nB\nc\n", ComputeOptions{})

		if area.StartLine != 1 || area.EndLine != 4 {
			t.Errorf("unexpected area bounds [%d, %d]", area.StartLine, area.EndLine)
		}
		if area.OriginalStartLine != 1 {
			t.Errorf("expected original start line 1, got %d", area.OriginalStartLine)
		}
		if area.OriginalSnapshot != "a\nb\nc\n" {
			t.Errorf("unexpected snapshot %q", area.OriginalSnapshot)
		}
		if len(area.Diffs) != 1 {
			t.Fatalf("expected 1 diff, got %d", len(area.Diffs))
		}

		d := area.DiffsSorted()[0]
		if !d.IsEdit() {
			t.Error("expected an edit diff")
		}
		if d.State != StatePending {
			t.Errorf("expected pending state, got %v", d.State)
		}
		if d.ModifiedRange != (LineRange{Start: 2, End: 2}) {
			t.Errorf("unexpected modified range %v", d.ModifiedRange)
		}
	})

	t.Run("streaming option marks area and diffs", func(t *testing.T) {
		reader := newFakeReader()
		reader.docs[testURI] = "x\n"
		s := New(reader, nil)

		area := s.ComputeDiffs(testURI, "a\n", "x\n", ComputeOptions{Streaming: true})
		if !area.Streaming {
			t.Error("expected streaming area")
		}
		for _, d := range area.Diffs {
			if d.State != StateStreaming {
				t.Errorf("expected streaming diff, got %v", d.State)
			}
		}
	})

	t.Run("ids are unique across areas", func(t *testing.T) {
		reader := newFakeReader()
		s := New(reader, nil)

		a1 := s.ComputeDiffs("file:///a.txt", "a\n", "b\n", ComputeOptions{})
		a2 := s.ComputeDiffs("file:///b.txt", "a\n", "c\n", ComputeOptions{})
		if a1.ID == a2.ID {
			t.Error("area ids must differ")
		}
		for id := range a1.Diffs {
			if _, ok := a2.Diffs[id]; ok {
				t.Error("diff ids must not repeat across areas")
			}
		}
	})
}

// TestMergeAcceptedDiffIntoBaseline tests baseline advancement on accept
func TestMergeAcceptedDiffIntoBaseline(t *testing.T) {
	t.Run("baseline advances and live stays untouched", func(t *testing.T) {
		reader := newFakeReader()
		live := "a\nB\nc\n"
		reader.docs[testURI] = live
		s := New(reader, nil)

		area := s.ComputeDiffs(testURI, "a\nb\nc\n", live, ComputeOptions{})
		d := area.DiffsSorted()[0]

		if err := s.MergeAcceptedDiffIntoBaseline(area.ID, d.ID); err != nil {
			t.Fatalf("merge failed: %v", err)
		}

		if area.OriginalSnapshot != "a\nB\nc\n" {
			t.Errorf("expected advanced snapshot, got %q", area.OriginalSnapshot)
		}
		if area.OriginalCode != "a\nB\nc\n" {
			t.Errorf("expected advanced region baseline, got %q", area.OriginalCode)
		}
		if reader.docs[testURI] != live {
			t.Error("live document must not change on accept")
		}
	})

	t.Run("later sibling original ranges shift by the delta", func(t *testing.T) {
		reader := newFakeReader()
		// Insert two lines at the top, edit line e at the bottom.
		live := "x\ny\na\nb\nc\nd\nE\n"
		reader.docs[testURI] = live
		s := New(reader, nil)

		area := s.ComputeDiffs(testURI, "a\nb\nc\nd\ne\n", live, ComputeOptions{})
		diffs := area.DiffsSorted()
		if len(diffs) != 2 {
			t.Fatalf("expected 2 diffs, got %d", len(diffs))
		}

		insertion, edit := diffs[0], diffs[1]
		if !insertion.IsInsertion() || !edit.IsEdit() {
			t.Fatalf("unexpected diff shapes: %v %v", insertion, edit)
		}
		editOrigBefore := edit.OriginalRange

		if err := s.MergeAcceptedDiffIntoBaseline(area.ID, insertion.ID); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		if edit.OriginalRange != editOrigBefore.Shift(2) {
			t.Errorf("expected edit original range %v, got %v",
				editOrigBefore.Shift(2), edit.OriginalRange)
		}
	})

	t.Run("unknown ids error", func(t *testing.T) {
		s := New(newFakeReader(), nil)
		if err := s.MergeAcceptedDiffIntoBaseline(99, 1); !errors.Is(err, ErrAreaNotFound) {
			t.Errorf("expected ErrAreaNotFound, got %v", err)
		}
	})
}

// TestRecomputeDiffsForFile tests destroy-and-recreate recomputation
func TestRecomputeDiffsForFile(t *testing.T) {
	t.Run("fresh ids and preserved baseline", func(t *testing.T) {
		reader := newFakeReader()
		reader.docs[testURI] = "a\nB\nc\n"
		s := New(reader, nil)

		area := s.ComputeDiffs(testURI, "a\nb\nc\n", "a\nB\nc\n", ComputeOptions{})
		oldAreaID := area.ID
		oldDiffID := area.DiffsSorted()[0].ID

		if err := s.RecomputeDiffsForFile(testURI); err != nil {
			t.Fatalf("recompute failed: %v", err)
		}

		areas := s.AreasForURI(testURI)
		if len(areas) != 1 {
			t.Fatalf("expected 1 area, got %d", len(areas))
		}
		fresh := areas[0]
		if fresh.ID == oldAreaID {
			t.Error("recompute must allocate a fresh area id")
		}
		if fresh.OriginalSnapshot != "a\nb\nc\n" {
			t.Errorf("baseline must survive recompute, got %q", fresh.OriginalSnapshot)
		}
		if len(fresh.Diffs) != 1 {
			t.Fatalf("expected 1 diff after recompute, got %d", len(fresh.Diffs))
		}
		for id := range fresh.Diffs {
			if id == oldDiffID {
				t.Error("recompute must allocate fresh diff ids")
			}
		}
		if _, ok := s.Area(oldAreaID); ok {
			t.Error("old area must be destroyed")
		}
	})

	t.Run("emits one recompute update per area", func(t *testing.T) {
		reader := newFakeReader()
		reader.docs[testURI] = "x\n"
		s := New(reader, nil)
		s.ComputeDiffs(testURI, "a\n", "x\n", ComputeOptions{})

		var got []Update
		cancel := s.OnDidUpdateArea(func(u Update) { got = append(got, u) })
		defer cancel()

		if err := s.RecomputeDiffsForFile(testURI); err != nil {
			t.Fatalf("recompute failed: %v", err)
		}
		if len(got) != 1 || got[0].Reason != ReasonRecompute {
			t.Errorf("unexpected updates %v", got)
		}
	})

	t.Run("missing model errors", func(t *testing.T) {
		s := New(newFakeReader(), nil)
		if err := s.RecomputeDiffsForFile("file:///missing"); !errors.Is(err, ErrModelUnavailable) {
			t.Errorf("expected ErrModelUnavailable, got %v", err)
		}
	})
}

// TestRealignAreaRanges tests coordinate shifting after a document change
func TestRealignAreaRanges(t *testing.T) {
	reader := newFakeReader()
	live := "a\nX\nc\nY\ne\n"
	reader.docs[testURI] = live
	s := New(reader, nil)

	area := s.ComputeDiffs(testURI, "a\nb\nc\nd\ne\n", live, ComputeOptions{})
	diffs := area.DiffsSorted()
	if len(diffs) != 2 {
		t.Fatalf("expected 2 diffs, got %d", len(diffs))
	}
	second := diffs[1]
	endBefore := area.EndLine

	// A change at line 2 that removed one line.
	s.RealignAreaRanges(testURI, LineRange{Start: 2, End: 2}, -1)

	if second.ModifiedRange != (LineRange{Start: 3, End: 3}) {
		t.Errorf("expected second diff shifted to [3-3], got %v", second.ModifiedRange)
	}
	if area.EndLine != endBefore-1 {
		t.Errorf("expected area end %d, got %d", endBefore-1, area.EndLine)
	}
	if area.StartLine != 1 {
		t.Errorf("area start must not shift, got %d", area.StartLine)
	}
	if diffs[0].ModifiedRange.Start != 2 {
		t.Errorf("diff at the change position must not shift, got %v", diffs[0].ModifiedRange)
	}
}

// TestRestoreAreas tests snapshot reinstall
func TestRestoreAreas(t *testing.T) {
	reader := newFakeReader()
	reader.docs[testURI] = "a\nB\n"
	s := New(reader, nil)

	area := s.ComputeDiffs(testURI, "a\nb\n", "a\nB\n", ComputeOptions{})
	snapshot := []*Area{area.Clone()}
	snapID := area.ID

	if err := s.RecomputeDiffsForFile(testURI); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	s.RestoreAreas(testURI, snapshot)

	areas := s.AreasForURI(testURI)
	if len(areas) != 1 || areas[0].ID != snapID {
		t.Fatalf("expected restored area %d, got %v", snapID, areas)
	}

	// Restored records are clones, not the snapshot itself.
	if areas[0] == snapshot[0] {
		t.Error("restore must install a clone")
	}

	// New allocations must not collide with restored ids.
	next := s.ComputeDiffs("file:///other", "x\n", "y\n", ComputeOptions{})
	if next.ID == snapID {
		t.Error("fresh area id collided with a restored id")
	}
}

// TestAbortStreaming tests clearing the in-flight writer mark
func TestAbortStreaming(t *testing.T) {
	reader := newFakeReader()
	reader.docs[testURI] = "x\n"
	s := New(reader, nil)

	area := s.ComputeDiffs(testURI, "a\n", "x\n", ComputeOptions{Streaming: true})
	if err := s.AbortStreaming(area.ID); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	if area.Streaming {
		t.Error("streaming mark must clear")
	}
	for _, d := range area.Diffs {
		if d.State != StatePending {
			t.Errorf("expected pending after abort, got %v", d.State)
		}
	}
}

// TestDeleteDiff tests diff record removal
func TestDeleteDiff(t *testing.T) {
	reader := newFakeReader()
	reader.docs[testURI] = "x\n"
	s := New(reader, nil)

	area := s.ComputeDiffs(testURI, "a\n", "x\n", ComputeOptions{})
	d := area.DiffsSorted()[0]

	if err := s.DeleteDiff(area.ID, d.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, _, ok := s.FindDiff(d.ID); ok {
		t.Error("diff must be gone after delete")
	}
	if err := s.DeleteDiff(area.ID, d.ID); !errors.Is(err, ErrDiffNotFound) {
		t.Errorf("expected ErrDiffNotFound, got %v", err)
	}
}
