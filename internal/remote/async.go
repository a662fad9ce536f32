package remote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/pkg/logger"
)

const tracerName = "github.com/inkpress/mediaedit/internal/remote"

// Metrics instruments remote updates.
type Metrics struct {
	updates  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics registers the remote update metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		updates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediaedit_remote_updates_total",
			Help: "Remote media updates by client and result",
		}, []string{"client", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mediaedit_remote_update_duration_seconds",
			Help:    "Duration of remote media updates",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"client"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "mediaedit_remote_updates_in_flight",
			Help: "Remote media updates currently executing",
		}),
	}
}

// Async runs Client updates off the caller's goroutine and reports each
// outcome through a Completion. It never retries.
type Async struct {
	client  Client
	timeout time.Duration
	metrics *Metrics
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewAsync wraps client. Each update gets at most timeout to finish.
func NewAsync(client Client, timeout time.Duration, metrics *Metrics, logger *slog.Logger) *Async {
	return &Async{client: client, timeout: timeout, metrics: metrics, logger: logger}
}

// Update starts sending req and returns immediately. done is called exactly
// once from another goroutine. The update outlives ctx cancellation but keeps
// its values, so trace and correlation ids carry over.
func (a *Async) Update(ctx context.Context, req domain.EditRequest, done Completion) {
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		done(a.run(ctx, req), req)
	}()
}

func (a *Async) run(ctx context.Context, req domain.EditRequest) bool {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "remote.UpdateMedia",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("media.client", a.client.Name()),
			attribute.String("media.blog_id", req.BlogID),
			attribute.String("media.id", req.MediaID),
		),
	)
	defer span.End()

	a.metrics.inFlight.Inc()
	start := time.Now()
	err := a.client.Update(ctx, req)
	a.metrics.inFlight.Dec()
	a.metrics.duration.WithLabelValues(a.client.Name()).Observe(time.Since(start).Seconds())

	log := logger.WithContext(ctx, a.logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.metrics.updates.WithLabelValues(a.client.Name(), "failure").Inc()
		log.WarnContext(ctx, "remote media update failed",
			slog.String("blog_id", req.BlogID),
			slog.String("media_id", req.MediaID),
			slog.String("error", err.Error()),
		)
		return false
	}

	a.metrics.updates.WithLabelValues(a.client.Name(), "success").Inc()
	log.InfoContext(ctx, "remote media update accepted",
		slog.String("blog_id", req.BlogID),
		slog.String("media_id", req.MediaID),
	)
	return true
}

// Wait blocks until every started update has completed.
func (a *Async) Wait() {
	a.wg.Wait()
}
