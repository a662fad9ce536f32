// Package sizing computes how large a media image is displayed on the editor screen.
package sizing

import (
	"net/url"
	"strconv"

	"github.com/inkpress/mediaedit/internal/domain"
)

// Layout is the presentation context of the editor.
type Layout string

const (
	// LayoutEmbedded renders the editor inline next to other panes; width comes from the container.
	LayoutEmbedded Layout = "embedded"
	// LayoutFullScreen renders the editor alone; width comes from the display.
	LayoutFullScreen Layout = "fullscreen"
)

// IsValid reports whether l is a known layout.
func (l Layout) IsValid() bool {
	return l == LayoutEmbedded || l == LayoutFullScreen
}

// Viewport carries the measurements supplied by the host.
type Viewport struct {
	Layout         Layout `json:"layout"`
	ContainerWidth int    `json:"container_width"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
}

// Width returns the width constraint for the viewport's layout.
func (v Viewport) Width() int {
	return ViewportWidth(v.Layout, v.ContainerWidth, v.ScreenWidth)
}

// Height returns the height constraint, which is always the display height.
func (v Viewport) Height() int {
	return v.ScreenHeight
}

// ViewportWidth selects the width source for a layout.
func ViewportWidth(layout Layout, containerWidth, screenWidth int) int {
	if layout == LayoutEmbedded {
		return containerWidth
	}
	return screenWidth
}

// DisplaySize is the computed on-screen size of an image. A zero value is hidden.
type DisplaySize struct {
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	Visible bool `json:"visible"`
}

// Hidden is the size of an image area that is collapsed.
func Hidden() DisplaySize {
	return DisplaySize{}
}

// ComputeDisplaySize fits an image into a viewport while keeping its aspect ratio.
// A width overflow is resolved first; otherwise a height overflow; otherwise the
// intrinsic size is used. A non-positive viewport dimension does not constrain.
func ComputeDisplaySize(intrinsicWidth, intrinsicHeight, viewportWidth, viewportHeight int) DisplaySize {
	if intrinsicWidth <= 0 || intrinsicHeight <= 0 {
		return Hidden()
	}

	w := float64(intrinsicWidth)
	h := float64(intrinsicHeight)

	switch {
	case viewportWidth > 0 && intrinsicWidth > viewportWidth:
		vw := float64(viewportWidth)
		return DisplaySize{
			Width:   viewportWidth,
			Height:  int(h / (w / vw)),
			Visible: true,
		}
	case viewportHeight > 0 && intrinsicHeight > viewportHeight:
		vh := float64(viewportHeight)
		return DisplaySize{
			Width:   int(w / (h / vh)),
			Height:  viewportHeight,
			Visible: true,
		}
	default:
		return DisplaySize{
			Width:   intrinsicWidth,
			Height:  intrinsicHeight,
			Visible: true,
		}
	}
}

// ForRecord computes the display size of rec within vp, or Hidden when rec has no image.
func ForRecord(rec *domain.MediaRecord, vp Viewport) DisplaySize {
	if rec == nil || !rec.HasImage() {
		return Hidden()
	}
	return ComputeDisplaySize(rec.IntrinsicWidth, rec.IntrinsicHeight, vp.Width(), vp.Height())
}

// ResizedImageURL adds the w=<width> hint asking the media server for a scaled rendition.
// The URL is returned unchanged when width is not positive or the URL does not parse.
func ResizedImageURL(raw string, width int) string {
	if width <= 0 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("w", strconv.Itoa(width))
	u.RawQuery = q.Encode()
	return u.String()
}
