package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/pkg/database"
)

const selectColumns = `blog_id, media_id, title, caption, description, image_url, width, height, created_at, updated_at`

// MediaStore implements repository.MediaStore on the media_items table.
type MediaStore struct {
	db database.DBTX
}

// NewMediaStore creates a PostgreSQL-backed media store.
func NewMediaStore(db database.DBTX) *MediaStore {
	return &MediaStore{db: db}
}

// GetRecord retrieves one record by blog and media id.
func (s *MediaStore) GetRecord(ctx context.Context, blogID, mediaID string) (rec *domain.MediaRecord, err error) {
	query := `SELECT ` + selectColumns + `
		FROM media_items
		WHERE blog_id = $1 AND media_id = $2`

	ctx, end := database.TraceQuery(ctx, "GetRecord", query)
	defer func() { end(err) }()

	rec, err = s.scanRecord(s.db.QueryRow(ctx, query, blogID, mediaID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.RecordNotFound(blogID, mediaID)
	}
	return rec, err
}

// GetFirstRecord returns the newest record of the blog, ties broken by media id.
func (s *MediaStore) GetFirstRecord(ctx context.Context, blogID string) (rec *domain.MediaRecord, err error) {
	query := `SELECT ` + selectColumns + `
		FROM media_items
		WHERE blog_id = $1
		ORDER BY created_at DESC, media_id DESC
		LIMIT 1`

	ctx, end := database.TraceQuery(ctx, "GetFirstRecord", query)
	defer func() { end(err) }()

	rec, err = s.scanRecord(s.db.QueryRow(ctx, query, blogID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.RecordNotFound(blogID, "")
	}
	return rec, err
}

// UpdateRecord writes the edited fields in a single statement.
func (s *MediaStore) UpdateRecord(ctx context.Context, req domain.EditRequest) (err error) {
	query := `UPDATE media_items
		SET title = $1, caption = $2, description = $3, updated_at = $4
		WHERE blog_id = $5 AND media_id = $6`

	ctx, end := database.TraceQuery(ctx, "UpdateRecord", query)
	defer func() { end(err) }()

	ct, err := s.db.Exec(ctx, query,
		req.Title,
		req.Caption,
		req.Description,
		time.Now().UTC(),
		req.BlogID,
		req.MediaID,
	)
	if err != nil {
		return fmt.Errorf("update media item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.RecordNotFound(req.BlogID, req.MediaID)
	}
	return nil
}

// Upsert inserts rec or overwrites every column of an existing row. The
// original created_at is kept on conflict.
func (s *MediaStore) Upsert(ctx context.Context, rec *domain.MediaRecord) (err error) {
	query := `INSERT INTO media_items (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (blog_id, media_id) DO UPDATE SET
			title = EXCLUDED.title,
			caption = EXCLUDED.caption,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			updated_at = EXCLUDED.updated_at`

	ctx, end := database.TraceQuery(ctx, "Upsert", query)
	defer func() { end(err) }()

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.db.Exec(ctx, query,
		rec.BlogID,
		rec.MediaID,
		rec.Title,
		rec.Caption,
		rec.Description,
		rec.ImageURL,
		rec.IntrinsicWidth,
		rec.IntrinsicHeight,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert media item: %w", err)
	}
	return nil
}

func (s *MediaStore) scanRecord(row pgx.Row) (*domain.MediaRecord, error) {
	var m domain.MediaRecord
	err := row.Scan(
		&m.BlogID,
		&m.MediaID,
		&m.Title,
		&m.Caption,
		&m.Description,
		&m.ImageURL,
		&m.IntrinsicWidth,
		&m.IntrinsicHeight,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan media item: %w", err)
	}
	return &m, nil
}
