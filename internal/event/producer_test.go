package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/mediaedit/internal/domain"
	pkgkafka "github.com/inkpress/mediaedit/pkg/kafka"
	"github.com/inkpress/mediaedit/pkg/logger"
)

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error { return nil }

func newTestProducer(w *stubWriter) *Producer {
	return NewProducer(pkgkafka.NewProducerWithWriter(w, []string{"localhost:9092"}, logger.Discard()), logger.Discard())
}

func sampleRecord() *domain.MediaRecord {
	return &domain.MediaRecord{
		BlogID:      "7",
		MediaID:     "42",
		Title:       "Sunset",
		Caption:     "Over the bay",
		Description: "Taken in June",
		UpdatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishMediaUpdated(t *testing.T) {
	w := &stubWriter{}
	p := newTestProducer(w)

	ctx := logger.WithCorrelationID(context.Background(), "req-1")
	ctx = logger.WithSessionID(ctx, "sess-1")
	require.NoError(t, p.PublishMediaUpdated(ctx, sampleRecord()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, TopicMediaUpdated, msg.Topic)
	assert.Equal(t, "7:42", string(msg.Key))

	var ev pkgkafka.Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, TopicMediaUpdated, ev.EventType)
	assert.Equal(t, AggregateTypeMedia, ev.AggregateType)
	assert.Equal(t, SourceMediaEdit, ev.Source)
	assert.Equal(t, "req-1", ev.CorrelationID)
	assert.Equal(t, "sess-1", ev.Metadata["session_id"])

	var data MediaUpdatedData
	require.NoError(t, ev.UnmarshalData(&data))
	assert.Equal(t, "42", data.MediaID)
	assert.Equal(t, "Sunset", data.Title)
	assert.Equal(t, "Taken in June", data.Description)
}

func TestPublishMediaUpdated_WriterError(t *testing.T) {
	w := &stubWriter{err: errors.New("leader not available")}
	p := newTestProducer(w)

	err := p.PublishMediaUpdated(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish media.updated event")
}

func TestAggregateID(t *testing.T) {
	assert.Equal(t, "blog:media", AggregateID("blog", "media"))
}
