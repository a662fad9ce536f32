package domain

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// imageExtensions lists the file extensions rendered as an inline image.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// MediaRecord is one media item of a blog as cached locally.
type MediaRecord struct {
	MediaID         string    `json:"media_id"`
	BlogID          string    `json:"blog_id"`
	Title           string    `json:"title"`
	Caption         string    `json:"caption"`
	Description     string    `json:"description"`
	ImageURL        string    `json:"image_url,omitempty"`
	IntrinsicWidth  int       `json:"intrinsic_width,omitempty"`
	IntrinsicHeight int       `json:"intrinsic_height,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasImage reports whether the record carries a renderable image with known dimensions.
func (m *MediaRecord) HasImage() bool {
	return IsValidImageURL(m.ImageURL) && m.IntrinsicWidth > 0 && m.IntrinsicHeight > 0
}

// ValidDimensions reports whether the intrinsic size is either absent or
// positive in both directions.
func (m *MediaRecord) ValidDimensions() bool {
	w, h := m.IntrinsicWidth, m.IntrinsicHeight
	return (w == 0 && h == 0) || (w > 0 && h > 0)
}

// Apply copies the editable fields of req into the record.
func (m *MediaRecord) Apply(req EditRequest) {
	m.Title = req.Title
	m.Caption = req.Caption
	m.Description = req.Description
}

// Clone returns an independent copy of the record.
func (m *MediaRecord) Clone() *MediaRecord {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

// EditRequest is an immutable snapshot of the editable fields taken when a save is submitted.
type EditRequest struct {
	MediaID     string `json:"media_id"`
	BlogID      string `json:"blog_id"`
	Title       string `json:"title"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
}

// NewEditRequest snapshots the identity of rec together with the edited field values.
func NewEditRequest(rec *MediaRecord, title, caption, description string) EditRequest {
	return EditRequest{
		MediaID:     rec.MediaID,
		BlogID:      rec.BlogID,
		Title:       title,
		Caption:     caption,
		Description: description,
	}
}

// IsValidImageURL reports whether raw is an absolute http(s) URL pointing at an image file.
func IsValidImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}
