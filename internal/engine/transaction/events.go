package transaction

import "github.com/editflow/editflow/internal/engine/diffsource"

// TransactionEvent is the payload for transaction lifecycle topics.
type TransactionEvent struct {
	TransactionID string
	URI           string
	State         diffsource.DiffState
	Source        RequestSource
}

// DiffEvent is the payload for diff.accepted and diff.rejected.
type DiffEvent struct {
	DiffID diffsource.DiffID
	AreaID diffsource.AreaID
	URI    string
}

// FileEvent is the payload for file.accepted and file.rejected.
type FileEvent struct {
	URI           string
	ResolvedCount int
}

// WorkspaceEvent is the payload for all.accepted and all.rejected.
type WorkspaceEvent struct {
	URIs          []string
	ResolvedCount int
}

// EditedFilesEvent is the payload for editedfiles.changed.
type EditedFilesEvent struct {
	URI string
}
