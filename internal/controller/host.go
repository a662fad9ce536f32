package controller

import (
	"context"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/internal/remote"
	"github.com/inkpress/mediaedit/internal/sizing"
)

// Host renders the editor and receives its notifications. Notifications are
// delivered without the controller's lock held, so a Host may call back into
// the controller. Completion-driven notifications arrive on the remote
// updater's goroutine.
type Host interface {
	// Viewport returns the current measurements used for image sizing.
	Viewport() sizing.Viewport

	OnLoadStarted()
	OnRecordLoaded(rec *domain.MediaRecord, size sizing.DisplaySize)
	// OnRecordAbsent asks the host to hide every field.
	OnRecordAbsent()
	OnSaveStateChanged(enabled bool)
	OnSaveResult(mediaID string, success bool)
}

// RemoteUpdater sends an edit asynchronously and reports the outcome through
// done exactly once.
type RemoteUpdater interface {
	Update(ctx context.Context, req domain.EditRequest, done remote.Completion)
}

// EventPublisher announces confirmed saves to other systems.
type EventPublisher interface {
	PublishMediaUpdated(ctx context.Context, rec *domain.MediaRecord) error
}
