package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/mediaedit/internal/session"
	"github.com/inkpress/mediaedit/internal/sizing"
	"github.com/inkpress/mediaedit/pkg/httputil"
	"github.com/inkpress/mediaedit/pkg/logger"
	"github.com/inkpress/mediaedit/pkg/validator"
)

// SessionHandler handles HTTP requests for editor sessions.
type SessionHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(sessions *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// --- Request DTOs ---

// CreateSessionRequest opens an editor for a blog.
type CreateSessionRequest struct {
	BlogID         string `json:"blog_id" validate:"required,max=64"`
	MediaID        string `json:"media_id" validate:"max=64"`
	Layout         string `json:"layout" validate:"required,oneof=embedded fullscreen"`
	ContainerWidth int    `json:"container_width" validate:"required_if=Layout embedded,gte=0"`
	ScreenWidth    int    `json:"screen_width" validate:"gte=0"`
	ScreenHeight   int    `json:"screen_height" validate:"gte=0"`
}

// LoadMediaRequest switches the session to another record. An empty media id
// loads the blog's first record.
type LoadMediaRequest struct {
	MediaID string `json:"media_id" validate:"max=64"`
}

// SubmitEditRequest carries the edited field values.
type SubmitEditRequest struct {
	Title       string `json:"title" validate:"max=255"`
	Caption     string `json:"caption" validate:"max=1024"`
	Description string `json:"description" validate:"max=8192"`
}

// --- Handlers ---

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	vp := sizing.Viewport{
		Layout:         sizing.Layout(req.Layout),
		ContainerWidth: req.ContainerWidth,
		ScreenWidth:    req.ScreenWidth,
		ScreenHeight:   req.ScreenHeight,
	}

	s, err := h.sessions.Create(r.Context(), req.BlogID, req.MediaID, vp)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+s.ID)
	httputil.WriteData(w, http.StatusCreated, s.View())
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, s.View())
}

// LoadMedia handles POST /api/v1/sessions/{id}/load.
func (h *SessionHandler) LoadMedia(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req LoadMediaRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	s.Load(logger.WithSessionID(r.Context(), s.ID), req.MediaID)
	httputil.WriteData(w, http.StatusOK, s.View())
}

// ResumeSession handles POST /api/v1/sessions/{id}/resume.
func (h *SessionHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	s.Resume(logger.WithSessionID(r.Context(), s.ID))
	httputil.WriteData(w, http.StatusOK, s.View())
}

// SubmitEdit handles PUT /api/v1/sessions/{id}/edit. The save runs in the
// background; poll the session for its result.
func (h *SessionHandler) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req SubmitEditRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	ctx := logger.WithSessionID(r.Context(), s.ID)
	if err := s.SubmitEdit(ctx, req.Title, req.Caption, req.Description); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusAccepted, s.View())
}

// DeleteSession handles DELETE /api/v1/sessions/{id}.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
