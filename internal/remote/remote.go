// Package remote sends media metadata edits to the remote media server.
package remote

import (
	"context"

	"github.com/inkpress/mediaedit/internal/domain"
)

// Client performs one synchronous metadata update against the remote server.
type Client interface {
	// Name identifies the client in logs and metrics (e.g. "wpcom", "mock").
	Name() string

	// Update sends the fields of req. A nil error means the server accepted it.
	Update(ctx context.Context, req domain.EditRequest) error
}

// Completion receives the outcome of one asynchronous update together with
// the request snapshot it belongs to.
type Completion func(success bool, req domain.EditRequest)
