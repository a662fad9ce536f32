package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/internal/repository"
)

// SeedFromFile upserts the JSON array of media records in path into store.
func SeedFromFile(ctx context.Context, store repository.MediaStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Seed(ctx, store, f)
}

// Seed upserts the JSON array of media records read from r into store.
func Seed(ctx context.Context, store repository.MediaStore, r io.Reader) (int, error) {
	var records []domain.MediaRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("decode seed records: %w", err)
	}

	for i := range records {
		rec := &records[i]
		if rec.BlogID == "" || rec.MediaID == "" {
			return i, fmt.Errorf("seed record %d: blog_id and media_id are required", i)
		}
		if !rec.ValidDimensions() {
			return i, fmt.Errorf("seed record %d: intrinsic_width and intrinsic_height must both be positive or both absent", i)
		}
		if err := store.Upsert(ctx, rec); err != nil {
			return i, fmt.Errorf("seed record %s/%s: %w", rec.BlogID, rec.MediaID, err)
		}
	}
	return len(records), nil
}
