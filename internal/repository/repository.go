package repository

import (
	"context"

	"github.com/inkpress/mediaedit/internal/domain"
)

// MediaStore reads and writes the locally cached media records of a blog.
// Not-found conditions are reported with an error wrapping domain.ErrRecordNotFound.
type MediaStore interface {
	// GetRecord returns the record identified by (blogID, mediaID).
	GetRecord(ctx context.Context, blogID, mediaID string) (*domain.MediaRecord, error)

	// GetFirstRecord returns the most recently added record of the blog.
	GetFirstRecord(ctx context.Context, blogID string) (*domain.MediaRecord, error)

	// UpdateRecord persists the edited fields of req atomically.
	UpdateRecord(ctx context.Context, req domain.EditRequest) error

	// Upsert inserts rec or replaces the stored copy.
	Upsert(ctx context.Context, rec *domain.MediaRecord) error
}
