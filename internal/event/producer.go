package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkpress/mediaedit/internal/domain"
	pkgkafka "github.com/inkpress/mediaedit/pkg/kafka"
	"github.com/inkpress/mediaedit/pkg/logger"
)

// Kafka topic constants for media edit events.
const (
	TopicMediaUpdated = "media.updated"
)

// Aggregate type constant.
const AggregateTypeMedia = "media"

// Source identifier for events originating from the edit controller.
const SourceMediaEdit = "mediaedit"

// MediaUpdatedData is the payload for a media.updated event.
type MediaUpdatedData struct {
	BlogID      string    `json:"blog_id"`
	MediaID     string    `json:"media_id"`
	Title       string    `json:"title"`
	Caption     string    `json:"caption"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AggregateID identifies a media record across blogs.
func AggregateID(blogID, mediaID string) string {
	return blogID + ":" + mediaID
}

// Producer publishes media edit events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishMediaUpdated publishes a media.updated event for a confirmed save.
func (p *Producer) PublishMediaUpdated(ctx context.Context, rec *domain.MediaRecord) error {
	data := MediaUpdatedData{
		BlogID:      rec.BlogID,
		MediaID:     rec.MediaID,
		Title:       rec.Title,
		Caption:     rec.Caption,
		Description: rec.Description,
		UpdatedAt:   rec.UpdatedAt,
	}

	event, err := pkgkafka.NewEvent(TopicMediaUpdated, AggregateID(rec.BlogID, rec.MediaID), AggregateTypeMedia, SourceMediaEdit, data)
	if err != nil {
		return fmt.Errorf("create media.updated event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if id := logger.SessionIDFromContext(ctx); id != "" {
		event.WithMetadata("session_id", id)
	}

	if err := p.kafka.Publish(ctx, TopicMediaUpdated, event); err != nil {
		return fmt.Errorf("publish media.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published media.updated event",
		slog.String("blog_id", rec.BlogID),
		slog.String("media_id", rec.MediaID),
	)

	return nil
}
