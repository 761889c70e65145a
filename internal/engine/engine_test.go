package engine

import (
	"testing"

	"github.com/editflow/editflow/internal/config"
	"github.com/editflow/editflow/internal/engine/checkpoint"
	"github.com/editflow/editflow/internal/engine/transaction"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Engine.SettleDelayMS = 0
	return cfg
}

// TestEngineReviewCycle tests a full propose/accept/undo cycle through the
// facade
func TestEngineReviewCycle(t *testing.T) {
	e := New(testConfig(), nil)
	defer e.Close()

	uri := "file:///main.go"
	e.Store.Open(uri, "package main\n\nfunc main() {}\n")

	_, err := e.Manager.CreateEditTransaction(uri, "package main\n", transaction.CreateOptions{})
	if err != nil {
		t.Fatalf("CreateEditTransaction failed: %v", err)
	}

	diffs := e.Manager.GetDiffsForFile(uri)
	if len(diffs) == 0 {
		t.Fatal("expected at least one diff")
	}

	if !e.Manager.AcceptFile(uri) {
		t.Fatal("AcceptFile failed")
	}
	if got, _ := e.Store.Value(uri); got != "package main\n\nfunc main() {}\n" {
		t.Errorf("live document changed on accept: %q", got)
	}
	if len(e.Manager.GetAllDiffs()) != 0 {
		t.Error("expected no diffs after accept")
	}
	if !e.Ledger.CanUndo() {
		t.Error("expected a history entry")
	}
}

// TestEngineCheckpoint tests checkpoint capture over tracked state
func TestEngineCheckpoint(t *testing.T) {
	e := New(testConfig(), nil)
	defer e.Close()

	uriA, uriB := "file:///a.txt", "file:///b.txt"
	e.Store.Open(uriA, "hello\nworld\n")
	e.Store.Open(uriB, "x\nY\n")
	for uri, original := range map[string]string{uriA: "hello\n", uriB: "x\ny\n"} {
		if _, err := e.Manager.CreateEditTransaction(uri, original, transaction.CreateOptions{}); err != nil {
			t.Fatalf("CreateEditTransaction failed: %v", err)
		}
	}

	cp1 := e.CreateCheckpoint("before review", "")
	cp2 := e.CreateCheckpoint("still before review", "")

	if cp1.Epoch != 1 || cp2.Epoch != 2 {
		t.Errorf("expected epochs 1 and 2, got %d and %d", cp1.Epoch, cp2.Epoch)
	}
	for _, cp := range []*checkpoint.Checkpoint{cp1, cp2} {
		if len(cp.FileSnapshots) != 2 {
			t.Errorf("expected 2 file snapshots, got %d", len(cp.FileSnapshots))
		}
		if len(cp.AreaSnapshots) != 2 {
			t.Errorf("expected 2 area snapshots, got %d", len(cp.AreaSnapshots))
		}
	}
	if cp1.FileSnapshots[uriA] != "hello\nworld\n" {
		t.Errorf("unexpected file snapshot %q", cp1.FileSnapshots[uriA])
	}

	// A later accept must not leak into the stored snapshot.
	if !e.Manager.AcceptFile(uriA) {
		t.Fatal("AcceptFile failed")
	}
	stored, _ := e.Checkpoints.Get(cp1.ID)
	for _, area := range stored.AreaSnapshots {
		if len(area.Diffs) != 1 {
			t.Error("checkpoint area must keep its diffs after later mutation")
		}
	}

	// Scoping to one uri limits the snapshot.
	cp3 := e.CreateCheckpoint("after accept", "", uriB)
	if len(cp3.FileSnapshots) != 1 {
		t.Errorf("expected 1 file snapshot, got %d", len(cp3.FileSnapshots))
	}
}

// TestEngineReset tests session teardown
func TestEngineReset(t *testing.T) {
	e := New(testConfig(), nil)
	defer e.Close()

	uri := "file:///a.txt"
	e.Store.Open(uri, "b\n")
	if _, err := e.Manager.CreateEditTransaction(uri, "a\n", transaction.CreateOptions{}); err != nil {
		t.Fatalf("CreateEditTransaction failed: %v", err)
	}
	e.CreateCheckpoint("snap", "")

	e.Reset()

	if e.Store.Count() != 0 {
		t.Error("expected no open documents")
	}
	if len(e.Source.TrackedURIs()) != 0 {
		t.Error("expected no tracked uris")
	}
	if e.Checkpoints.Count() != 0 {
		t.Error("expected no checkpoints")
	}
	if e.Ledger.CanUndo() {
		t.Error("expected empty history")
	}
}
