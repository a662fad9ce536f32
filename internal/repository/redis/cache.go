// Package redis adds a read-through Redis cache in front of another media store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/internal/repository"
)

const (
	keyPrefix     = "media:"
	versionPrefix = "media-ver:"

	// versionTTL outlives any single read, so a fence cannot expire under it.
	versionTTL = 24 * time.Hour
)

// cacheKey returns media:{blogID}:{mediaID}.
func cacheKey(blogID, mediaID string) string {
	return keyPrefix + blogID + ":" + mediaID
}

// versionKey returns media-ver:{blogID}:{mediaID}, bumped on every write.
func versionKey(blogID, mediaID string) string {
	return versionPrefix + blogID + ":" + mediaID
}

// CachedStore is a cache-aside repository.MediaStore decorator. Writes go to
// the inner store first, then bump the record's version and drop the cached
// copy. A fill only lands if the version it observed before reading the inner
// store is still current, so a read racing a write cannot cache the old row.
// Redis failures are logged and never fail a read.
type CachedStore struct {
	inner  repository.MediaStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps inner with a Redis cache of the given TTL.
func NewCachedStore(inner repository.MediaStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

// GetRecord serves from Redis when possible and fills the cache on a miss.
func (s *CachedStore) GetRecord(ctx context.Context, blogID, mediaID string) (*domain.MediaRecord, error) {
	rec, err := s.lookup(ctx, blogID, mediaID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "media cache read failed",
			slog.String("key", cacheKey(blogID, mediaID)),
			slog.String("error", err.Error()),
		)
	}

	version, verr := s.version(ctx, blogID, mediaID)

	rec, err = s.inner.GetRecord(ctx, blogID, mediaID)
	if err != nil {
		return nil, err
	}
	if verr == nil {
		s.fill(ctx, rec, version)
	}
	return rec, nil
}

// GetFirstRecord always asks the inner store, which owns the ordering. The
// record id is unknown until the read returns, so the result is not cached.
func (s *CachedStore) GetFirstRecord(ctx context.Context, blogID string) (*domain.MediaRecord, error) {
	return s.inner.GetFirstRecord(ctx, blogID)
}

// UpdateRecord writes through and invalidates the cached entry.
func (s *CachedStore) UpdateRecord(ctx context.Context, req domain.EditRequest) error {
	if err := s.inner.UpdateRecord(ctx, req); err != nil {
		return err
	}
	s.invalidate(ctx, req.BlogID, req.MediaID)
	return nil
}

// Upsert writes through and invalidates the cached entry.
func (s *CachedStore) Upsert(ctx context.Context, rec *domain.MediaRecord) error {
	if err := s.inner.Upsert(ctx, rec); err != nil {
		return err
	}
	s.invalidate(ctx, rec.BlogID, rec.MediaID)
	return nil
}

func (s *CachedStore) lookup(ctx context.Context, blogID, mediaID string) (*domain.MediaRecord, error) {
	data, err := s.client.Get(ctx, cacheKey(blogID, mediaID)).Bytes()
	if err != nil {
		return nil, err
	}
	var rec domain.MediaRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cached media: %w", err)
	}
	return &rec, nil
}

// version returns the record's write version, "" when it was never written.
func (s *CachedStore) version(ctx context.Context, blogID, mediaID string) (string, error) {
	v, err := s.client.Get(ctx, versionKey(blogID, mediaID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// fill caches rec unless its version moved past seen. The check and the SET
// run in one WATCH transaction.
func (s *CachedStore) fill(ctx context.Context, rec *domain.MediaRecord, seen string) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	vkey := versionKey(rec.BlogID, rec.MediaID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != seen {
			return errVersionMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(rec.BlogID, rec.MediaID), data, s.ttl)
			return nil
		})
		return err
	}, vkey)

	switch {
	case err == nil:
	case errors.Is(err, errVersionMoved), errors.Is(err, redis.TxFailedErr):
		s.logger.DebugContext(ctx, "media cache fill skipped, record changed",
			slog.String("media_id", rec.MediaID),
		)
	default:
		s.logger.WarnContext(ctx, "media cache write failed",
			slog.String("media_id", rec.MediaID),
			slog.String("error", err.Error()),
		)
	}
}

var errVersionMoved = errors.New("media version moved")

// invalidate bumps the version, which fences in-flight fills, and drops the
// cached copy.
func (s *CachedStore) invalidate(ctx context.Context, blogID, mediaID string) {
	vkey := versionKey(blogID, mediaID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, versionTTL)
		pipe.Del(ctx, cacheKey(blogID, mediaID))
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "media cache invalidation failed",
			slog.String("key", cacheKey(blogID, mediaID)),
			slog.String("error", err.Error()),
		)
	}
}
