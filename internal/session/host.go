package session

import (
	"sync"
	"time"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/internal/sizing"
)

// ImageView is the image area as the editor would draw it.
type ImageView struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SaveResult is the last save outcome reported to the host.
type SaveResult struct {
	MediaID string    `json:"media_id"`
	Success bool      `json:"success"`
	At      time.Time `json:"at"`
}

// RecordingHost keeps the latest notifications of a controller so the view
// can be served over HTTP.
type RecordingHost struct {
	mu          sync.RWMutex
	viewport    sizing.Viewport
	loading     bool
	record      *domain.MediaRecord
	size        sizing.DisplaySize
	absent      bool
	saveEnabled bool
	lastSave    *SaveResult
	now         func() time.Time
}

// NewRecordingHost creates a host measuring with vp.
func NewRecordingHost(vp sizing.Viewport) *RecordingHost {
	return &RecordingHost{
		viewport: vp,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Viewport returns the measurements the host was created with.
func (h *RecordingHost) Viewport() sizing.Viewport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewport
}

// OnLoadStarted marks the view as loading until the record or its absence
// is reported.
func (h *RecordingHost) OnLoadStarted() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loading = true
}

// OnRecordLoaded renders rec with its image at size.
func (h *RecordingHost) OnRecordLoaded(rec *domain.MediaRecord, size sizing.DisplaySize) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loading = false
	h.absent = false
	h.record = rec
	h.size = size
}

// OnRecordAbsent hides the fields and the image area.
func (h *RecordingHost) OnRecordAbsent() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loading = false
	h.absent = true
	h.record = nil
	h.size = sizing.Hidden()
}

// OnSaveStateChanged enables or disables the save action.
func (h *RecordingHost) OnSaveStateChanged(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saveEnabled = enabled
}

// OnSaveResult records the outcome of the last save.
func (h *RecordingHost) OnSaveResult(mediaID string, success bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSave = &SaveResult{MediaID: mediaID, Success: success, At: h.now()}
}

// hostView is a consistent copy of the recorded notifications.
type hostView struct {
	viewport    sizing.Viewport
	loading     bool
	absent      bool
	image       *ImageView
	saveEnabled bool
	lastSave    *SaveResult
}

func (h *RecordingHost) snapshot() hostView {
	h.mu.RLock()
	defer h.mu.RUnlock()

	v := hostView{
		viewport:    h.viewport,
		loading:     h.loading,
		absent:      h.absent,
		saveEnabled: h.saveEnabled,
	}
	if h.record != nil && h.size.Visible {
		v.image = &ImageView{
			URL:    sizing.ResizedImageURL(h.record.ImageURL, h.size.Width),
			Width:  h.size.Width,
			Height: h.size.Height,
		}
	}
	if h.lastSave != nil {
		ls := *h.lastSave
		v.lastSave = &ls
	}
	return v
}
