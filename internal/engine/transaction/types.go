package transaction

import (
	"time"

	"github.com/editflow/editflow/internal/engine/diffsource"
)

// RequestSource identifies what initiated a transaction.
type RequestSource string

const (
	// SourceAgent marks edits proposed by an AI agent.
	SourceAgent RequestSource = "agent"

	// SourceUser marks edits proposed directly by the user.
	SourceUser RequestSource = "user"

	// SourceTool marks edits proposed by a tool invocation.
	SourceTool RequestSource = "tool"
)

// Transaction is a caller-visible unit of review work on one uri.
type Transaction struct {
	ID  string
	URI string

	// State tracks the transaction through the same lifecycle as its
	// diffs: pending or streaming until resolved, then accepted or
	// rejected.
	State diffsource.DiffState

	// AreaID is the diff area created for this transaction. The area
	// itself materializes when the diff source first computes diffs, and
	// its id churns on every recompute.
	AreaID diffsource.AreaID

	CreatedAt   time.Time
	CompletedAt time.Time
	Source      RequestSource
}

// IsTerminal returns true once the transaction is resolved.
func (t *Transaction) IsTerminal() bool {
	return t.State.IsTerminal()
}

// CreateOptions configures transaction creation.
type CreateOptions struct {
	// Streaming marks the transaction's region as still being written.
	Streaming bool

	// Source identifies the initiator. Defaults to SourceAgent.
	Source RequestSource
}

// FileSummary aggregates review state for one uri.
type FileSummary struct {
	URI string

	// PendingCount and StreamingCount cover the diffs currently tracked.
	PendingCount   int
	StreamingCount int

	// AcceptedCount and RejectedCount accumulate over the session, since
	// resolved diff records are deleted.
	AcceptedCount int
	RejectedCount int

	// AddedLines and RemovedLines sum the modified and original spans of
	// the currently tracked diffs.
	AddedLines   int
	RemovedLines int

	HasPendingDiffs   bool
	HasStreamingDiffs bool

	// LastModified is the newest diff area creation time for the uri.
	LastModified time.Time
}
