package transaction

import (
	"errors"

	"github.com/editflow/editflow/internal/engine/diffsource"
	"github.com/editflow/editflow/internal/engine/document"
)

// ErrDiffShape indicates a diff whose ranges violate the insertion/deletion/
// edit classification.
var ErrDiffShape = errors.New("diff has no classifiable range shape")

// rejectWrite reverts a single diff's region in the live document, leaving
// all other content untouched. Newline anchoring at the diff area's end line
// avoids duplicate or dangling blank lines. Returns the edit result so the
// caller can realign sibling ranges by the net line delta.
func rejectWrite(model *document.Model, area *diffsource.Area, d *diffsource.Diff) (document.EditResult, error) {
	switch {
	case d.IsDeletion():
		return rejectDeletion(model, area, d)
	case d.IsInsertion():
		return rejectInsertion(model, area, d)
	case d.IsEdit():
		return rejectEdit(model, d)
	default:
		return document.EditResult{}, ErrDiffShape
	}
}

// rejectDeletion re-inserts the deleted original code at the deletion point.
func rejectDeletion(model *document.Model, area *diffsource.Area, d *diffsource.Diff) (document.EditResult, error) {
	anchor := d.ModifiedRange.Start

	if anchor >= area.EndLine && anchor > 1 {
		// The deletion point is at the region tail: append to the line
		// above with a leading newline so no duplicate trailing blank
		// line appears.
		pos := document.Position{Line: anchor - 1, Col: document.ColEnd}
		return model.Replace(document.NewRange(pos, pos), "\n"+d.OriginalCode)
	}

	pos := document.Position{Line: anchor, Col: 1}
	return model.Replace(document.NewRange(pos, pos), d.OriginalCode+"\n")
}

// rejectInsertion deletes exactly the inserted line span.
func rejectInsertion(model *document.Model, area *diffsource.Area, d *diffsource.Diff) (document.EditResult, error) {
	span := d.ModifiedRange

	if span.End >= area.EndLine && span.Start > 1 {
		// The span reaches the region's last line: delete from the end of
		// the line above through the span's end so no dangling blank line
		// remains.
		return model.Replace(document.NewRange(
			document.Position{Line: span.Start - 1, Col: document.ColEnd},
			document.Position{Line: span.End, Col: document.ColEnd},
		), "")
	}

	// Delete the span plus its trailing line break.
	return model.Replace(document.NewRange(
		document.Position{Line: span.Start, Col: 1},
		document.Position{Line: span.End + 1, Col: 1},
	), "")
}

// rejectEdit replaces the modified span with the original code verbatim.
func rejectEdit(model *document.Model, d *diffsource.Diff) (document.EditResult, error) {
	return model.Replace(document.NewRange(
		document.Position{Line: d.ModifiedRange.Start, Col: 1},
		document.Position{Line: d.ModifiedRange.End, Col: document.ColEnd},
	), d.OriginalCode)
}
