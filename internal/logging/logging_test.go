package logging

import (
	"bytes"
	"strings"
	"testing"
)

// TestLevelFiltering tests that messages below the minimum level are dropped
func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept warn")
	l.Error("kept error")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("low-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "kept warn") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "kept error") {
		t.Errorf("error message missing: %q", out)
	}
}

// TestFields tests structured field output
func TestFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, Prefix: "editflow"})

	l.WithComponent("ledger").WithField("uri", "file:///a.txt").Info("entry pushed")

	out := buf.String()
	if !strings.Contains(out, "editflow: entry pushed") {
		t.Errorf("prefix or message missing: %q", out)
	}
	if !strings.Contains(out, "{component=ledger, uri=file:///a.txt}") {
		t.Errorf("fields missing or unsorted: %q", out)
	}
}

// TestFormatArgs tests printf-style argument formatting
func TestFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf})

	l.Info("resolved %d diffs in %s", 3, "a.txt")
	if !strings.Contains(buf.String(), "resolved 3 diffs in a.txt") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

// TestParseLevel tests level name parsing
func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"ERROR":   LevelError,
		"bogus":   LevelInfo,
	} {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

// TestNullLogger tests that the null logger never writes
func TestNullLogger(t *testing.T) {
	var buf bytes.Buffer
	Null.SetOutput(&buf)
	Null.Error("nothing")
	if buf.Len() != 0 {
		t.Errorf("null logger wrote %q", buf.String())
	}
}
