package document

import (
	"errors"
	"strings"
	"sync"
)

// Errors returned by model operations.
var (
	ErrRangeInvalid   = errors.New("invalid range")
	ErrLineOutOfRange = errors.New("line out of range")
)

// Model is a single uri-addressed text document.
// Line counting follows the split convention: a document holds
// strings.Count(text, "\n")+1 lines, so text ending in a newline has a final
// empty line. All methods are thread-safe.
type Model struct {
	mu       sync.RWMutex
	uri      string
	text     string
	revision uint64
}

// NewModel creates a model with the given content.
// CRLF and lone CR line endings are normalized to LF.
func NewModel(uri, content string) *Model {
	return &Model{
		uri:  uri,
		text: normalizeLineEndings(content),
	}
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// URI returns the model's uri.
func (m *Model) URI() string {
	return m.uri
}

// Value returns the full document text.
func (m *Model) Value() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text
}

// Revision returns the current revision counter.
// It increments on every successful write.
func (m *Model) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

// LineCount returns the number of lines.
func (m *Model) LineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return strings.Count(m.text, "\n") + 1
}

// LineText returns the text of a line without its newline.
func (m *Model) LineText(line int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lines := strings.Split(m.text, "\n")
	if line < 1 || line > len(lines) {
		return "", ErrLineOutOfRange
	}
	return lines[line-1], nil
}

// FullRange returns the range covering the entire document.
func (m *Model) FullRange() Range {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Range{
		Start: Position{Line: 1, Col: 1},
		End:   Position{Line: strings.Count(m.text, "\n") + 1, Col: ColEnd},
	}
}

// EditResult describes a completed replacement.
type EditResult struct {
	// OldRange is the range that was replaced.
	OldRange Range

	// OldText is the text that was replaced.
	OldText string

	// NewText is the replacement text after line ending normalization.
	NewText string

	// LineDelta is the net change in line count.
	LineDelta int
}

// Replace replaces the text covered by r with newText and returns an
// EditResult for ledger capture and range realignment. The document is not
// modified when the range cannot be resolved.
func (m *Model) Replace(r Range, newText string) (EditResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !r.IsValid() {
		return EditResult{}, ErrRangeInvalid
	}

	start, err := m.offsetOfLocked(r.Start)
	if err != nil {
		return EditResult{}, err
	}
	end, err := m.offsetOfLocked(r.End)
	if err != nil {
		return EditResult{}, err
	}
	if start > end {
		return EditResult{}, ErrRangeInvalid
	}

	newText = normalizeLineEndings(newText)
	oldText := m.text[start:end]

	m.text = m.text[:start] + newText + m.text[end:]
	m.revision++

	return EditResult{
		OldRange:  r,
		OldText:   oldText,
		NewText:   newText,
		LineDelta: strings.Count(newText, "\n") - strings.Count(oldText, "\n"),
	}, nil
}

// offsetOfLocked converts a position to a byte offset (must hold lock).
// Columns past the end of the line, including ColEnd, clamp to line end.
func (m *Model) offsetOfLocked(p Position) (int, error) {
	if p.Line < 1 || p.Col < 1 {
		return 0, ErrRangeInvalid
	}

	// Find the start offset of the target line.
	lineStart := 0
	line := 1
	for line < p.Line {
		idx := strings.IndexByte(m.text[lineStart:], '\n')
		if idx < 0 {
			return 0, ErrLineOutOfRange
		}
		lineStart += idx + 1
		line++
	}

	lineLen := len(m.text) - lineStart
	if idx := strings.IndexByte(m.text[lineStart:], '\n'); idx >= 0 {
		lineLen = idx
	}

	col := p.Col
	if col == ColEnd || col > lineLen+1 {
		col = lineLen + 1
	}

	return lineStart + col - 1, nil
}
