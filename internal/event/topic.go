package event

import "strings"

// Topic identifies an event type using dot notation, e.g. "diff.accepted".
type Topic string

// Separator is the character used to separate topic segments.
const Separator = "."

// Engine event topics.
const (
	// TopicTransactionCreated is published when an edit transaction is opened.
	TopicTransactionCreated Topic = "transaction.created"

	// TopicTransactionCompleted is published when a transaction reaches a
	// terminal state (accepted or rejected).
	TopicTransactionCompleted Topic = "transaction.completed"

	// TopicDiffAccepted is published after a single diff is accepted.
	TopicDiffAccepted Topic = "diff.accepted"

	// TopicDiffRejected is published after a single diff is rejected.
	TopicDiffRejected Topic = "diff.rejected"

	// TopicFileAccepted is published after every diff in a file is accepted.
	TopicFileAccepted Topic = "file.accepted"

	// TopicFileRejected is published after every diff in a file is rejected.
	TopicFileRejected Topic = "file.rejected"

	// TopicAllAccepted is published after a workspace-wide accept.
	TopicAllAccepted Topic = "all.accepted"

	// TopicAllRejected is published after a workspace-wide reject.
	TopicAllRejected Topic = "all.rejected"

	// TopicEditedFilesChanged is published whenever per-file summary data
	// may have changed.
	TopicEditedFilesChanged Topic = "editedfiles.changed"

	// TopicFileModifiedExternally is published by the watcher when a file
	// with pending diffs is written by something other than the engine.
	TopicFileModifiedExternally Topic = "watch.file.modified-externally"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// HasPrefix returns true if the topic starts with the given prefix on a
// segment boundary.
func (t Topic) HasPrefix(prefix Topic) bool {
	if prefix == "" {
		return true
	}
	s, p := string(t), string(prefix)
	if !strings.HasPrefix(s, p) {
		return false
	}
	return len(s) == len(p) || s[len(p)] == '.'
}

// IsValid returns true if the topic is non-empty and contains no empty
// segments.
func (t Topic) IsValid() bool {
	s := string(t)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, Separator) || strings.HasSuffix(s, Separator) {
		return false
	}
	return !strings.Contains(s, Separator+Separator)
}
