// Package session runs headless editor sessions, each owning one media edit
// controller and a host that records what the editor would display.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkpress/mediaedit/internal/controller"
	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/internal/repository"
	"github.com/inkpress/mediaedit/internal/sizing"
	apperrors "github.com/inkpress/mediaedit/pkg/errors"
)

// View is the serialisable state of one session.
type View struct {
	SessionID   string                `json:"session_id"`
	BlogID      string                `json:"blog_id"`
	State       controller.State      `json:"state"`
	Loading     bool                  `json:"loading"`
	Absent      bool                  `json:"absent"`
	Record      *domain.MediaRecord   `json:"record,omitempty"`
	Image       *ImageView            `json:"image,omitempty"`
	SaveEnabled bool                  `json:"save_enabled"`
	LastSave    *SaveResult           `json:"last_save,omitempty"`
	Viewport    sizing.Viewport       `json:"viewport"`
	Saved       controller.SavedState `json:"saved_state"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Session is one editor screen.
type Session struct {
	ID        string
	BlogID    string
	CreatedAt time.Time

	ctrl *controller.Controller
	host *RecordingHost
}

// View returns the session's current view. The record fields come from the
// controller, so a confirmed edit shows without a reload.
func (s *Session) View() View {
	hv := s.host.snapshot()
	return View{
		SessionID:   s.ID,
		BlogID:      s.BlogID,
		State:       s.ctrl.State(),
		Loading:     hv.loading,
		Absent:      hv.absent,
		Record:      s.ctrl.Current(),
		Image:       hv.image,
		SaveEnabled: hv.saveEnabled,
		LastSave:    hv.lastSave,
		Viewport:    hv.viewport,
		Saved:       s.ctrl.SaveState(),
		CreatedAt:   s.CreatedAt,
	}
}

// Load shows mediaID of the session's blog, or its first record when empty.
func (s *Session) Load(ctx context.Context, mediaID string) {
	s.ctrl.Load(ctx, s.BlogID, mediaID)
}

// Resume reloads the record the session was showing, picking up changes
// made elsewhere while the editor was in the background.
func (s *Session) Resume(ctx context.Context) {
	s.ctrl.Resume(ctx)
}

// SubmitEdit starts a save of the edited fields.
func (s *Session) SubmitEdit(ctx context.Context, title, caption, description string) error {
	if s.ctrl.SubmitEdit(ctx, title, caption, description) {
		return nil
	}
	if s.ctrl.Saving() {
		return apperrors.Conflict("a save is already in progress")
	}
	return apperrors.Conflict("no media record is loaded")
}

// tombstoneTTL is how long a closed session id answers 410 instead of 404.
const tombstoneTTL = time.Hour

// Manager owns the live sessions.
type Manager struct {
	store   repository.MediaStore
	updater controller.RemoteUpdater
	opts    []controller.Option
	limit   int
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   map[string]time.Time
}

// NewManager creates a manager allowing at most limit concurrent sessions.
// opts are applied to every controller it creates.
func NewManager(store repository.MediaStore, updater controller.RemoteUpdater, limit int, logger *slog.Logger, opts ...controller.Option) *Manager {
	return &Manager{
		store:    store,
		updater:  updater,
		opts:     append([]controller.Option{controller.WithLogger(logger)}, opts...),
		limit:    limit,
		logger:   logger,
		sessions: make(map[string]*Session),
		closed:   make(map[string]time.Time),
	}
}

// Create opens a session for blogID measured with vp and loads mediaID
// (or the blog's first record).
func (m *Manager) Create(ctx context.Context, blogID, mediaID string, vp sizing.Viewport) (*Session, error) {
	if !vp.Layout.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown layout %q", vp.Layout))
	}

	host := NewRecordingHost(vp)
	s := &Session{
		ID:        uuid.NewString(),
		BlogID:    blogID,
		CreatedAt: time.Now().UTC(),
		host:      host,
		ctrl:      controller.New(m.store, m.updater, host, m.opts...),
	}

	m.mu.Lock()
	if m.limit > 0 && len(m.sessions) >= m.limit {
		m.mu.Unlock()
		return nil, apperrors.ServiceUnavailable("too many editor sessions")
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "editor session opened",
		slog.String("session_id", s.ID),
		slog.String("blog_id", blogID),
		slog.String("layout", string(vp.Layout)),
	)

	s.Load(ctx, mediaID)
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if _, ok := m.closed[id]; ok {
		return nil, apperrors.Gone(fmt.Sprintf("session %s was closed", id))
	}
	return nil, apperrors.NotFound("session", id)
}

// Delete tears a session down. A save still in flight completes remotely
// but no longer touches the session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.tombstone(id, time.Now().UTC())
	}
	m.mu.Unlock()

	if !ok {
		_, err := m.Get(id)
		return err
	}

	s.ctrl.Close()
	m.logger.InfoContext(ctx, "editor session closed", slog.String("session_id", id))
	return nil
}

// tombstone marks id closed and forgets expired marks. Caller holds m.mu.
func (m *Manager) tombstone(id string, now time.Time) {
	for old, at := range m.closed {
		if now.Sub(at) > tombstoneTTL {
			delete(m.closed, old)
		}
	}
	m.closed[id] = now
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	now := time.Now().UTC()
	for id := range sessions {
		m.tombstone(id, now)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.ctrl.Close()
	}
	m.logger.Info("editor sessions closed", slog.Int("count", len(sessions)))
}
