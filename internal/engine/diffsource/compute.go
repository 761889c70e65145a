package diffsource

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// computedSpan is one changed region produced by diff computation, in
// coordinates local to the compared texts (1-based lines).
type computedSpan struct {
	originalRange LineRange
	modifiedRange LineRange
	originalCode  string
	modifiedCode  string
}

// computeSpans diffs two texts line-wise and returns one span per contiguous
// change. Equal regions produce nothing.
func computeSpans(original, modified string) []computedSpan {
	oldLines := strings.Split(original, "\n")
	newLines := strings.Split(modified, "\n")

	var spans []computedSpan
	for _, op := range difflib.NewMatcher(oldLines, newLines).GetOpCodes() {
		switch op.Tag {
		case 'r':
			spans = append(spans, computedSpan{
				originalRange: LineRange{Start: op.I1 + 1, End: op.I2},
				modifiedRange: LineRange{Start: op.J1 + 1, End: op.J2},
				originalCode:  strings.Join(oldLines[op.I1:op.I2], "\n"),
				modifiedCode:  strings.Join(newLines[op.J1:op.J2], "\n"),
			})
		case 'd':
			spans = append(spans, computedSpan{
				originalRange: LineRange{Start: op.I1 + 1, End: op.I2},
				modifiedRange: EmptyLineRange(op.J1 + 1),
				originalCode:  strings.Join(oldLines[op.I1:op.I2], "\n"),
			})
		case 'i':
			spans = append(spans, computedSpan{
				originalRange: EmptyLineRange(op.I1 + 1),
				modifiedRange: LineRange{Start: op.J1 + 1, End: op.J2},
				modifiedCode:  strings.Join(newLines[op.J1:op.J2], "\n"),
			})
		}
	}
	return spans
}

// lineCount returns the number of lines in text under the split convention.
func lineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

// sliceLines returns the inclusive 1-based line span of text.
// Out-of-bounds lines are clamped.
func sliceLines(text string, start, end int) string {
	lines := strings.Split(text, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// spliceLines replaces the inclusive line span [start, end] of text with
// replacement. An empty span (end = start-1) inserts before line start.
func spliceLines(text string, start, end int, replacement string) string {
	lines := strings.Split(text, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}

	// An empty replacement deletes the span outright.
	var repl []string
	if replacement != "" {
		repl = strings.Split(replacement, "\n")
	}

	out := make([]string, 0, len(lines)-max(0, end-start+1)+len(repl))
	out = append(out, lines[:start-1]...)
	out = append(out, repl...)
	if end < start {
		out = append(out, lines[start-1:]...)
	} else {
		out = append(out, lines[end:]...)
	}
	return strings.Join(out, "\n")
}
