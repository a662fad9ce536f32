package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/mediaedit/internal/controller"
	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/internal/remote"
	"github.com/inkpress/mediaedit/internal/repository/memory"
	"github.com/inkpress/mediaedit/internal/sizing"
	apperrors "github.com/inkpress/mediaedit/pkg/errors"
	"github.com/inkpress/mediaedit/pkg/logger"
)

// inlineUpdater completes every update synchronously.
type inlineUpdater struct {
	success bool
}

func (u inlineUpdater) Update(_ context.Context, req domain.EditRequest, done remote.Completion) {
	done(u.success, req)
}

// heldUpdater keeps completions until release is called.
type heldUpdater struct {
	mu   sync.Mutex
	held []func()
}

func (u *heldUpdater) Update(_ context.Context, req domain.EditRequest, done remote.Completion) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.held = append(u.held, func() { done(true, req) })
}

func (u *heldUpdater) release() {
	u.mu.Lock()
	held := u.held
	u.held = nil
	u.mu.Unlock()
	for _, f := range held {
		f()
	}
}

var fullScreen = sizing.Viewport{Layout: sizing.LayoutFullScreen, ScreenWidth: 600, ScreenHeight: 1000}

func seededStore(t *testing.T) *memory.MediaStore {
	t.Helper()
	store := memory.NewMediaStore()
	require.NoError(t, store.Upsert(context.Background(), &domain.MediaRecord{
		BlogID: "7", MediaID: "42", Title: "Sunset", Caption: "Bay", Description: "June",
		ImageURL: "https://cdn.example.com/sunset.jpg", IntrinsicWidth: 1200, IntrinsicHeight: 800,
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.Upsert(context.Background(), &domain.MediaRecord{
		BlogID: "7", MediaID: "43", Title: "Notes", ImageURL: "https://cdn.example.com/notes.txt",
		CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}))
	return store
}

func TestCreate_LoadsAndRendersImage(t *testing.T) {
	m := NewManager(seededStore(t), inlineUpdater{success: true}, 10, logger.Discard())

	s, err := m.Create(context.Background(), "7", "42", fullScreen)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	v := s.View()
	assert.Equal(t, controller.StateLoaded, v.State)
	assert.False(t, v.Loading)
	assert.False(t, v.Absent)
	require.NotNil(t, v.Record)
	assert.Equal(t, "Sunset", v.Record.Title)
	require.NotNil(t, v.Image)
	assert.Equal(t, ImageView{URL: "https://cdn.example.com/sunset.jpg?w=600", Width: 600, Height: 400}, *v.Image)
	assert.True(t, v.SaveEnabled)
	assert.Nil(t, v.LastSave)
}

func TestCreate_FirstRecordWhenNoMediaID(t *testing.T) {
	m := NewManager(seededStore(t), inlineUpdater{success: true}, 10, logger.Discard())

	s, err := m.Create(context.Background(), "7", "", fullScreen)
	require.NoError(t, err)
	assert.Equal(t, "42", s.View().Record.MediaID)
}

func TestCreate_NonImageHidesImageArea(t *testing.T) {
	m := NewManager(seededStore(t), inlineUpdater{success: true}, 10, logger.Discard())

	s, err := m.Create(context.Background(), "7", "43", fullScreen)
	require.NoError(t, err)
	v := s.View()
	require.NotNil(t, v.Record)
	assert.Nil(t, v.Image)
}

func TestCreate_AbsentRecord(t *testing.T) {
	m := NewManager(seededStore(t), inlineUpdater{success: true}, 10, logger.Discard())

	s, err := m.Create(context.Background(), "7", "999", fullScreen)
	require.NoError(t, err)

	v := s.View()
	assert.True(t, v.Absent)
	assert.Nil(t, v.Record)
	assert.False(t, v.SaveEnabled)
	assert.Equal(t, controller.StateIdle, v.State)

	err = s.SubmitEdit(context.Background(), "t", "c", "d")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestCreate_InvalidLayout(t *testing.T) {
	m := NewManager(seededStore(t), inlineUpdater{success: true}, 10, logger.Discard())

	_, err := m.Create(context.Background(), "7", "42", sizing.Viewport{Layout: "tablet"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Zero(t, m.Len())
}

func TestCreate_LimitReached(t *testing.T) {
	m := NewManager(seededStore(t), inlineUpdater{success: true}, 1, logger.Discard())

	_, err := m.Create(context.Background(), "7", "42", fullScreen)
	require.NoError(t, err)

	_, err = m.Create(context.Background(), "7", "42", fullScreen)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Equal(t, 1, m.Len())
}

func TestSubmitEdit_SuccessRecordsResult(t *testing.T) {
	store := seededStore(t)
	m := NewManager(store, inlineUpdater{success: true}, 10, logger.Discard())
	s, err := m.Create(context.Background(), "7", "42", fullScreen)
	require.NoError(t, err)

	require.NoError(t, s.SubmitEdit(context.Background(), "Dusk", "Bay", "June"))

	v := s.View()
	require.NotNil(t, v.LastSave)
	assert.Equal(t, "42", v.LastSave.MediaID)
	assert.True(t, v.LastSave.Success)
	assert.True(t, v.SaveEnabled)
	require.NotNil(t, v.Record)
	assert.Equal(t, "Dusk", v.Record.Title, "confirmed edit stays on screen")
	require.NotNil(t, v.Image)

	rec, err := store.GetRecord(context.Background(), "7", "42")
	require.NoError(t, err)
	assert.Equal(t, "Dusk", rec.Title)
}

func TestSubmitEdit_FailureRecordsResult(t *testing.T) {
	store := seededStore(t)
	m := NewManager(store, inlineUpdater{success: false}, 10, logger.Discard())
	s, err := m.Create(context.Background(), "7", "42", fullScreen)
	require.NoError(t, err)

	require.NoError(t, s.SubmitEdit(context.Background(), "Dusk", "", ""))

	v := s.View()
	require.NotNil(t, v.LastSave)
	assert.False(t, v.LastSave.Success)
	assert.Equal(t, "Sunset", v.Record.Title)

	rec, err := store.GetRecord(context.Background(), "7", "42")
	require.NoError(t, err)
	assert.Equal(t, "Sunset", rec.Title)
}

func TestSubmitEdit_ConflictWhileSaving(t *testing.T) {
	updater := &heldUpdater{}
	m := NewManager(seededStore(t), updater, 10, logger.Discard())
	s, err := m.Create(context.Background(), "7", "42", fullScreen)
	require.NoError(t, err)

	require.NoError(t, s.SubmitEdit(context.Background(), "one", "", ""))
	assert.False(t, s.View().SaveEnabled)
	assert.Equal(t, controller.StateSaving, s.View().State)

	err = s.SubmitEdit(context.Background(), "two", "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Contains(t, err.Error(), "already in progress")

	updater.release()
	assert.True(t, s.View().SaveEnabled)
}

// gatedStore blocks GetRecord while gate is set.
type gatedStore struct {
	*memory.MediaStore
	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedStore) hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = make(chan struct{})
	g.entered = make(chan struct{})
}

func (g *gatedStore) GetRecord(ctx context.Context, blogID, mediaID string) (*domain.MediaRecord, error) {
	g.mu.Lock()
	gate, entered := g.gate, g.entered
	g.gate, g.entered = nil, nil
	g.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}
	return g.MediaStore.GetRecord(ctx, blogID, mediaID)
}

func TestSubmitEdit_ConflictWhileSavingAndLoading(t *testing.T) {
	store := &gatedStore{MediaStore: seededStore(t)}
	updater := &heldUpdater{}
	m := NewManager(store, updater, 10, logger.Discard())
	s, err := m.Create(context.Background(), "7", "42", fullScreen)
	require.NoError(t, err)
	require.NoError(t, s.SubmitEdit(context.Background(), "one", "", ""))

	store.hold()
	gate, entered := store.gate, store.entered
	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		s.Load(context.Background(), "43")
	}()
	<-entered
	require.Equal(t, controller.StateLoading, s.View().State)

	err = s.SubmitEdit(context.Background(), "two", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")

	close(gate)
	<-loaded
	updater.release()
}

func TestGetAndDelete(t *testing.T) {
	updater := &heldUpdater{}
	store := seededStore(t)
	m := NewManager(store, updater, 10, logger.Discard())
	s, err := m.Create(context.Background(), "7", "42", fullScreen)
	require.NoError(t, err)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, s.SubmitEdit(context.Background(), "Late", "", ""))
	require.NoError(t, m.Delete(context.Background(), s.ID))

	_, err = m.Get(s.ID)
	assert.True(t, errors.Is(err, apperrors.ErrGone))
	assert.True(t, errors.Is(m.Delete(context.Background(), s.ID), apperrors.ErrGone))

	_, err = m.Get("unknown")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	updater.release()
	rec, err := store.GetRecord(context.Background(), "7", "42")
	require.NoError(t, err)
	assert.Equal(t, "Sunset", rec.Title, "completion after teardown is inert")
}

func TestClose_TearsDownAll(t *testing.T) {
	m := NewManager(seededStore(t), inlineUpdater{success: true}, 10, logger.Discard())
	a, err := m.Create(context.Background(), "7", "42", fullScreen)
	require.NoError(t, err)
	_, err = m.Create(context.Background(), "7", "43", fullScreen)
	require.NoError(t, err)

	m.Close()
	assert.Zero(t, m.Len())
	_, err = m.Get(a.ID)
	assert.True(t, errors.Is(err, apperrors.ErrGone))
}

func TestTombstonesExpire(t *testing.T) {
	m := NewManager(seededStore(t), inlineUpdater{success: true}, 10, logger.Discard())
	now := time.Now().UTC()

	m.mu.Lock()
	m.tombstone("old", now.Add(-2*tombstoneTTL))
	m.tombstone("new", now)
	m.mu.Unlock()

	_, err := m.Get("old")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	_, err = m.Get("new")
	assert.True(t, errors.Is(err, apperrors.ErrGone))
}

func TestRecordingHost_EmbeddedViewport(t *testing.T) {
	h := NewRecordingHost(sizing.Viewport{Layout: sizing.LayoutEmbedded, ContainerWidth: 300, ScreenWidth: 1080, ScreenHeight: 1920})
	rec := &domain.MediaRecord{MediaID: "1", ImageURL: "https://cdn.example.com/a.png", IntrinsicWidth: 1200, IntrinsicHeight: 800}

	h.OnLoadStarted()
	assert.True(t, h.snapshot().loading)

	h.OnRecordLoaded(rec, sizing.ForRecord(rec, h.Viewport()))
	v := h.snapshot()
	assert.False(t, v.loading)
	require.NotNil(t, v.image)
	assert.Equal(t, 300, v.image.Width)
	assert.Equal(t, 200, v.image.Height)
	assert.Equal(t, "https://cdn.example.com/a.png?w=300", v.image.URL)

	h.OnRecordAbsent()
	v = h.snapshot()
	assert.True(t, v.absent)
	assert.Nil(t, h.record)
	assert.Nil(t, v.image)
}
