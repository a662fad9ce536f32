package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkpress/mediaedit/pkg/logger"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg.Headers).Get(key)
}

// --- Event ---

func TestNewEvent_Fields(t *testing.T) {
	type payload struct {
		MediaID string `json:"media_id"`
	}
	ev, err := NewEvent("media.updated", "7:42", "media", "mediaedit", payload{MediaID: "42"})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)
	assert.WithinDuration(t, time.Now().UTC(), ev.Timestamp, 2*time.Second)

	var got payload
	require.NoError(t, ev.UnmarshalData(&got))
	assert.Equal(t, "42", got.MediaID)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("media.updated", "a", "media", "mediaedit", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media.updated")
}

func TestEvent_Chaining(t *testing.T) {
	ev, err := NewEvent("media.updated", "a", "media", "mediaedit", nil)
	require.NoError(t, err)

	assert.Same(t, ev, ev.WithCorrelationID("corr-1").WithMetadata("blog_id", "7"))
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "7", ev.Metadata["blog_id"])
}

// --- Producer ---

func TestProducer_Publish(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &recordingWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, logger.Discard())

	ev, err := NewEvent("media.updated", "7:42", "media", "mediaedit", map[string]string{"title": "t"})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-1")

	require.NoError(t, p.Publish(ctx, "media.updated", ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "media.updated", msg.Topic)
	assert.Equal(t, "7:42", string(msg.Key))
	assert.Equal(t, "media.updated", header(msg, "event_type"))
	assert.Equal(t, "corr-1", header(msg, "correlation_id"))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", header(msg, "traceparent"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, logger.Discard())

	ev, _ := NewEvent("media.updated", "a", "media", "mediaedit", nil)
	err := p.Publish(context.Background(), "media.updated", ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := NewProducerWithWriter(&recordingWriter{}, nil, logger.Discard())
	assert.Error(t, p.Ping(context.Background()))
}

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)

	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}
