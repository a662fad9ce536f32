// Package memory keeps media records in process memory. It backs the
// "memory" store backend and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/inkpress/mediaedit/internal/domain"
)

type key struct {
	blogID  string
	mediaID string
}

// MediaStore is a concurrency-safe in-memory repository.MediaStore.
type MediaStore struct {
	mu      sync.RWMutex
	records map[key]*domain.MediaRecord
	now     func() time.Time
}

// NewMediaStore creates an empty store.
func NewMediaStore() *MediaStore {
	return &MediaStore{
		records: make(map[key]*domain.MediaRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetRecord returns a copy of the stored record.
func (s *MediaStore) GetRecord(_ context.Context, blogID, mediaID string) (*domain.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key{blogID, mediaID}]
	if !ok {
		return nil, domain.RecordNotFound(blogID, mediaID)
	}
	return rec.Clone(), nil
}

// GetFirstRecord returns the newest record of the blog, matching the
// PostgreSQL store's created_at DESC, media_id DESC order.
func (s *MediaStore) GetFirstRecord(_ context.Context, blogID string) (*domain.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first *domain.MediaRecord
	for k, rec := range s.records {
		if k.blogID != blogID {
			continue
		}
		if first == nil || newer(rec, first) {
			first = rec
		}
	}
	if first == nil {
		return nil, domain.RecordNotFound(blogID, "")
	}
	return first.Clone(), nil
}

func newer(a, b *domain.MediaRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.MediaID > b.MediaID
}

// UpdateRecord overwrites the editable fields under the write lock.
func (s *MediaStore) UpdateRecord(_ context.Context, req domain.EditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key{req.BlogID, req.MediaID}]
	if !ok {
		return domain.RecordNotFound(req.BlogID, req.MediaID)
	}
	rec.Apply(req)
	rec.UpdatedAt = s.now()
	return nil
}

// Upsert stores a copy of rec, keeping the original creation time on replace.
func (s *MediaStore) Upsert(_ context.Context, rec *domain.MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{rec.BlogID, rec.MediaID}
	now := s.now()
	if existing, ok := s.records[k]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.records[k] = rec.Clone()
	return nil
}

// Len returns the number of stored records.
func (s *MediaStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
