package document

import (
	"fmt"
	"math"
)

// ColEnd is a sentinel column meaning "end of line, before the newline".
// It is valid in any position regardless of the line's actual length.
const ColEnd = math.MaxInt32

// Position is a 1-based line/column point between bytes in a document.
// Column n addresses the point before the n-th byte of the line.
type Position struct {
	Line int
	Col  int
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	if p.Col == ColEnd {
		return fmt.Sprintf("%d:$", p.Line)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Compare returns -1, 0, or 1 depending on whether p is before, equal to,
// or after other.
func (p Position) Compare(other Position) int {
	if p.Line != other.Line {
		if p.Line < other.Line {
			return -1
		}
		return 1
	}
	if p.Col != other.Col {
		if p.Col < other.Col {
			return -1
		}
		return 1
	}
	return 0
}

// Range is the half-open span between two positions: [Start, End).
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a range from start and end positions.
func NewRange(start, end Position) Range {
	return Range{Start: start, End: end}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.String(), r.End.String())
}

// IsEmpty returns true if the range covers no text.
func (r Range) IsEmpty() bool {
	return r.Start.Compare(r.End) == 0
}

// IsValid returns true if Start does not come after End.
func (r Range) IsValid() bool {
	return r.Start.Compare(r.End) <= 0
}
