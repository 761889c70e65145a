package transaction

import (
	"errors"

	"github.com/editflow/editflow/internal/engine/diffsource"
	"github.com/editflow/editflow/internal/engine/document"
)

// isNotFound reports whether err stems from a missing diff, area, or
// document model. These are logged at warn level; the caller likely raced
// a concurrent resolution.
func isNotFound(err error) bool {
	return errors.Is(err, diffsource.ErrDiffNotFound) ||
		errors.Is(err, diffsource.ErrAreaNotFound) ||
		errors.Is(err, document.ErrModelNotFound)
}

// isInvalidRange reports whether err stems from a write targeting a range
// the document no longer contains. The write was aborted before mutation.
func isInvalidRange(err error) bool {
	return errors.Is(err, document.ErrRangeInvalid) ||
		errors.Is(err, document.ErrLineOutOfRange)
}
