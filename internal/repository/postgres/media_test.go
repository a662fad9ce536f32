package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/pkg/database"
	apperrors "github.com/inkpress/mediaedit/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupStore(t *testing.T) (*MediaStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewMediaStore(mock), mock
}

var columns = []string{
	"blog_id", "media_id", "title", "caption", "description",
	"image_url", "width", "height", "created_at", "updated_at",
}

func sampleRecord() domain.MediaRecord {
	return domain.MediaRecord{
		BlogID:          "7",
		MediaID:         "42",
		Title:           "Sunset",
		Caption:         "Over the bay",
		Description:     "Taken in June",
		ImageURL:        "https://example.files.wordpress.com/2025/06/sunset.jpg",
		IntrinsicWidth:  1200,
		IntrinsicHeight: 800,
		CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func recordRow(m domain.MediaRecord) []any {
	return []any{
		m.BlogID, m.MediaID, m.Title, m.Caption, m.Description,
		m.ImageURL, m.IntrinsicWidth, m.IntrinsicHeight, m.CreatedAt, m.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// GetRecord
// ---------------------------------------------------------------------------

func TestGetRecord_Found(t *testing.T) {
	store, mock := setupStore(t)
	want := sampleRecord()

	mock.ExpectQuery("SELECT (.+) FROM media_items WHERE blog_id = \\$1 AND media_id = \\$2").
		WithArgs("7", "42").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(recordRow(want)...))

	got, err := store.GetRecord(context.Background(), "7", "42")
	require.NoError(t, err)
	assert.Equal(t, &want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecord_NotFound(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("SELECT (.+) FROM media_items").
		WithArgs("7", "missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := store.GetRecord(context.Background(), "7", "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecord_QueryError(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("SELECT (.+) FROM media_items").
		WithArgs("7", "42").
		WillReturnError(errors.New("connection reset"))

	_, err := store.GetRecord(context.Background(), "7", "42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRecordNotFound)
	assert.Contains(t, err.Error(), "scan media item")
}

// ---------------------------------------------------------------------------
// GetFirstRecord
// ---------------------------------------------------------------------------

func TestGetFirstRecord_OrdersNewestFirst(t *testing.T) {
	store, mock := setupStore(t)
	want := sampleRecord()

	mock.ExpectQuery("ORDER BY created_at DESC, media_id DESC\\s+LIMIT 1").
		WithArgs("7").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(recordRow(want)...))

	got, err := store.GetFirstRecord(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "42", got.MediaID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFirstRecord_EmptyBlog(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("FROM media_items").
		WithArgs("7").
		WillReturnRows(pgxmock.NewRows(columns))

	_, err := store.GetFirstRecord(context.Background(), "7")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	assert.Contains(t, err.Error(), "first media of blog 7")
}

// ---------------------------------------------------------------------------
// UpdateRecord
// ---------------------------------------------------------------------------

func TestUpdateRecord_Success(t *testing.T) {
	store, mock := setupStore(t)
	req := domain.EditRequest{MediaID: "42", BlogID: "7", Title: "t", Caption: "c", Description: "d"}

	mock.ExpectExec("UPDATE media_items").
		WithArgs("t", "c", "d", pgxmock.AnyArg(), "7", "42").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateRecord(context.Background(), req))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRecord_NoRowsIsNotFound(t *testing.T) {
	store, mock := setupStore(t)
	req := domain.EditRequest{MediaID: "gone", BlogID: "7"}

	mock.ExpectExec("UPDATE media_items").
		WithArgs("", "", "", pgxmock.AnyArg(), "7", "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.UpdateRecord(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestUpdateRecord_ExecError(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec("UPDATE media_items").
		WillReturnError(errors.New("deadlock detected"))

	err := store.UpdateRecord(context.Background(), domain.EditRequest{MediaID: "42", BlogID: "7"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update media item")
}

// ---------------------------------------------------------------------------
// Upsert
// ---------------------------------------------------------------------------

func TestUpsert_SetsTimestamps(t *testing.T) {
	store, mock := setupStore(t)
	rec := sampleRecord()
	rec.CreatedAt = time.Time{}

	mock.ExpectExec("INSERT INTO media_items (.+) ON CONFLICT \\(blog_id, media_id\\) DO UPDATE").
		WithArgs("7", "42", "Sunset", "Over the bay", "Taken in June", rec.ImageURL, 1200, 800,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Upsert(context.Background(), &rec))
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
