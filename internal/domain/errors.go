package domain

import (
	"errors"
	"fmt"

	apperrors "github.com/inkpress/mediaedit/pkg/errors"
)

// Conditions the edit controller recovers from. None of them is fatal.
var (
	// ErrNoCurrentContext is returned when a load is requested without a blog.
	ErrNoCurrentContext = errors.New("no current blog context")

	// ErrRecordNotFound is returned when the requested (or first) record does not exist.
	ErrRecordNotFound = fmt.Errorf("media record: %w", apperrors.ErrNotFound)

	// ErrRemoteUpdateFailure is reported when the remote server rejects or fails an update.
	ErrRemoteUpdateFailure = errors.New("remote media update failed")

	// ErrStaleCallback marks a completion that no longer matches the controller's record.
	ErrStaleCallback = errors.New("stale update completion")
)

// RecordNotFound returns a not-found error for the given blog and media id.
func RecordNotFound(blogID, mediaID string) error {
	if mediaID == "" {
		return fmt.Errorf("first media of blog %s: %w", blogID, ErrRecordNotFound)
	}
	return fmt.Errorf("media %s of blog %s: %w", mediaID, blogID, ErrRecordNotFound)
}
