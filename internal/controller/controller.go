// Package controller implements the load/edit/save lifecycle of one media
// record on an editor screen.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/internal/repository"
	"github.com/inkpress/mediaedit/internal/sizing"
	"github.com/inkpress/mediaedit/pkg/logger"
)

const defaultStoreTimeout = 5 * time.Second

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithEventPublisher publishes media.updated after each confirmed save.
func WithEventPublisher(p EventPublisher) Option {
	return func(c *Controller) { c.events = p }
}

// WithMetrics records controller outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithStoreTimeout bounds store and publish calls made from completions.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Controller) { c.storeTimeout = d }
}

// Controller owns the lifecycle of one media record on behalf of a Host.
// At most one remote update is in flight per Controller; a second save
// submitted meanwhile is dropped. All methods are safe for concurrent use.
type Controller struct {
	store   repository.MediaStore
	updater RemoteUpdater
	host    Host
	events  EventPublisher
	metrics *Metrics
	logger  *slog.Logger

	storeTimeout time.Duration

	mu      sync.Mutex
	state   State
	blogID  string
	record  *domain.MediaRecord
	saving  bool
	pending *domain.EditRequest
	// pendingCtx carries the submitter's request-scoped values, without
	// its cancellation, to the completion.
	pendingCtx context.Context
	loadSeq    uint64
	restored   *SavedState
	closed     bool
}

// New creates an idle controller.
func New(store repository.MediaStore, updater RemoteUpdater, host Host, opts ...Option) *Controller {
	c := &Controller{
		store:        store,
		updater:      updater,
		host:         host,
		logger:       slog.Default(),
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "media_edit_controller"))
	return c
}

// settledState derives the resting state. Caller holds c.mu.
func (c *Controller) settledState() State {
	switch {
	case c.saving:
		return StateSaving
	case c.record != nil:
		return StateLoaded
	default:
		return StateIdle
	}
}

// Load shows the record mediaID of blogID, or the blog's first record when
// mediaID is empty. A missing blog or record leaves the controller without a
// record and tells the host to hide the fields. A load that is overtaken by a
// newer one is discarded.
func (c *Controller) Load(ctx context.Context, blogID, mediaID string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.loadSeq++
	seq := c.loadSeq
	c.state = StateLoading
	c.mu.Unlock()

	c.host.OnLoadStarted()

	log := logger.WithContext(ctx, c.logger).With(
		slog.String("blog_id", blogID),
		slog.String("media_id", mediaID),
	)

	rec, outcome := c.fetch(ctx, log, blogID, mediaID)
	c.metrics.load(outcome)

	c.mu.Lock()
	if c.closed || seq != c.loadSeq {
		c.mu.Unlock()
		log.DebugContext(ctx, "load superseded")
		return
	}
	c.blogID = blogID
	c.record = rec
	c.restored = nil
	c.state = c.settledState()
	saving := c.saving
	c.mu.Unlock()

	if !c.live() {
		return
	}
	if rec == nil {
		c.host.OnRecordAbsent()
	} else {
		c.host.OnRecordLoaded(rec.Clone(), sizing.ForRecord(rec, c.host.Viewport()))
	}
	if !saving {
		c.host.OnSaveStateChanged(rec != nil)
	}
}

// fetch reads the record and classifies the outcome for metrics.
func (c *Controller) fetch(ctx context.Context, log *slog.Logger, blogID, mediaID string) (*domain.MediaRecord, string) {
	if blogID == "" {
		log.InfoContext(ctx, "nothing to load", slog.String("reason", domain.ErrNoCurrentContext.Error()))
		return nil, "no_context"
	}

	var (
		rec *domain.MediaRecord
		err error
	)
	if mediaID == "" {
		rec, err = c.store.GetFirstRecord(ctx, blogID)
	} else {
		rec, err = c.store.GetRecord(ctx, blogID, mediaID)
	}

	switch {
	case err == nil:
		log.InfoContext(ctx, "media record loaded", slog.String("loaded_media_id", rec.MediaID))
		return rec, "loaded"
	case errors.Is(err, domain.ErrRecordNotFound):
		if mediaID == "" {
			log.InfoContext(ctx, "blog has no media")
		} else {
			log.WarnContext(ctx, "media record not found")
		}
		return nil, "absent"
	default:
		log.ErrorContext(ctx, "media store read failed", slog.String("error", err.Error()))
		return nil, "error"
	}
}

// SubmitEdit snapshots the edited fields and dispatches them to the remote
// updater. It reports whether a save was started: nothing happens unless a
// record is loaded and no other save is in flight.
func (c *Controller) SubmitEdit(ctx context.Context, title, caption, description string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if c.saving {
		c.mu.Unlock()
		c.metrics.droppedSubmission()
		logger.WithContext(ctx, c.logger).DebugContext(ctx, "save already in flight, submission dropped")
		return false
	}
	if c.state != StateLoaded || c.record == nil {
		c.mu.Unlock()
		return false
	}

	req := domain.NewEditRequest(c.record, title, caption, description)
	c.saving = true
	c.pending = &req
	c.pendingCtx = context.WithoutCancel(ctx)
	c.state = StateSaving
	c.mu.Unlock()

	c.host.OnSaveStateChanged(false)

	logger.WithContext(ctx, c.logger).InfoContext(ctx, "media save dispatched",
		slog.String("blog_id", req.BlogID),
		slog.String("media_id", req.MediaID),
	)
	c.updater.Update(ctx, req, c.OnRemoteUpdateComplete)
	return true
}

// OnRemoteUpdateComplete settles the save started for req. On success the
// edit is written to the store and replaces the in-memory record; on failure
// the record is left as it was. A completion for a record that is no longer
// shown only releases the save guard. After Close it does nothing.
//
// The store is written without c.mu held. The save guard stays up until the
// result is applied, so no second save can start in between.
func (c *Controller) OnRemoteUpdateComplete(success bool, req domain.EditRequest) {
	ids := []any{
		slog.String("blog_id", req.BlogID),
		slog.String("media_id", req.MediaID),
		slog.Bool("success", success),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("completion after close ignored", ids...)
		return
	}
	if !c.saving || c.pending == nil || *c.pending != req {
		c.mu.Unlock()
		c.logger.Warn("completion without matching save ignored", ids...)
		return
	}

	ctx := c.pendingCtx
	if ctx == nil {
		ctx = context.Background()
	}
	c.pending = nil
	c.pendingCtx = nil
	log := logger.WithContext(ctx, c.logger).With(ids...)

	if !c.shows(req) {
		c.saving = false
		c.state = c.settledState()
		enabled := c.record != nil
		c.mu.Unlock()

		c.metrics.stale()
		log.WarnContext(ctx, "stale completion ignored", slog.String("error", domain.ErrStaleCallback.Error()))
		if c.live() {
			c.host.OnSaveStateChanged(enabled)
		}
		return
	}

	var base *domain.MediaRecord
	if success {
		base = c.record.Clone()
	}
	c.mu.Unlock()

	var updated *domain.MediaRecord
	if base != nil {
		updated = c.persist(ctx, log, base, req)
	}

	c.mu.Lock()
	c.saving = false
	closed := c.closed
	shown := !closed && c.shows(req)
	if shown && updated != nil {
		c.record = updated.Clone()
	}
	c.state = c.settledState()
	enabled := c.record != nil
	c.mu.Unlock()

	c.metrics.saved(success)
	if success {
		log.InfoContext(ctx, "media save confirmed")
	} else {
		log.WarnContext(ctx, "media save failed, edit discarded", slog.String("error", domain.ErrRemoteUpdateFailure.Error()))
	}

	switch {
	case closed:
		log.DebugContext(ctx, "controller closed while save settled")
	case !shown:
		c.metrics.stale()
		log.WarnContext(ctx, "record replaced while save settled", slog.String("error", domain.ErrStaleCallback.Error()))
		if c.live() {
			c.host.OnSaveStateChanged(enabled)
		}
	case c.live():
		c.host.OnSaveStateChanged(true)
		c.host.OnSaveResult(req.MediaID, success)
	}

	if updated != nil && c.events != nil {
		pctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
		defer cancel()
		if err := c.events.PublishMediaUpdated(pctx, updated); err != nil {
			log.ErrorContext(ctx, "failed to publish media updated event", slog.String("error", err.Error()))
		}
	}
}

// shows reports whether req targets the record on screen. Caller holds c.mu.
func (c *Controller) shows(req domain.EditRequest) bool {
	return c.record != nil && c.record.MediaID == req.MediaID && c.record.BlogID == req.BlogID
}

// live reports whether the host may still be notified.
func (c *Controller) live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// persist writes req to the store and returns the record to show next: the
// stored copy when it can be re-read, base with req applied otherwise.
func (c *Controller) persist(ctx context.Context, log *slog.Logger, base *domain.MediaRecord, req domain.EditRequest) *domain.MediaRecord {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	fallback := base.Clone()
	fallback.Apply(req)

	if err := c.store.UpdateRecord(ctx, req); err != nil {
		log.ErrorContext(ctx, "media store update failed after remote save", slog.String("error", err.Error()))
		return fallback
	}
	fresh, err := c.store.GetRecord(ctx, req.BlogID, req.MediaID)
	if err != nil {
		log.ErrorContext(ctx, "media store re-read failed after update", slog.String("error", err.Error()))
		return fallback
	}
	return fresh
}

// Close tears the controller down. Every later call, including pending
// completions, is a no-op. A notification the host is already receiving when
// Close is called still completes; none is started afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.record = nil
	c.state = StateIdle
	if c.saving {
		c.logger.Info("controller closed with save in flight")
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns a copy of the in-memory record, or nil.
func (c *Controller) Current() *domain.MediaRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.Clone()
}

// Saving reports whether a save is in flight.
func (c *Controller) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// SaveEnabled reports whether a submission would be dispatched now.
func (c *Controller) SaveEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.state == StateLoaded
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SaveState returns the identity of the shown record for the host to persist.
// MediaID is empty when nothing is shown, meaning "first record" on resume.
func (c *Controller) SaveState() SavedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restored != nil {
		return *c.restored
	}
	s := SavedState{BlogID: c.blogID}
	if c.record != nil {
		s.MediaID = c.record.MediaID
	}
	return s
}

// RestoreState remembers s for the next Resume.
func (c *Controller) RestoreState(s SavedState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restored = &s
}

// Resume reloads the restored record, or the current one if nothing was restored.
func (c *Controller) Resume(ctx context.Context) {
	s := c.SaveState()
	c.Load(ctx, s.BlogID, s.MediaID)
}
