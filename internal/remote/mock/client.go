package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/inkpress/mediaedit/internal/domain"
)

// Client is a development remote that accepts every edit after a short delay.
type Client struct {
	delay time.Duration
	fail  bool
}

// NewClient creates a mock client. With fail set, every update is rejected.
func NewClient(delay time.Duration, fail bool) *Client {
	return &Client{delay: delay, fail: fail}
}

// Name returns the client name.
func (c *Client) Name() string {
	return "mock"
}

// Update simulates the remote round trip.
func (c *Client) Update(ctx context.Context, req domain.EditRequest) error {
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if c.fail {
		return fmt.Errorf("%w: mock rejected media %s", domain.ErrRemoteUpdateFailure, req.MediaID)
	}
	return nil
}
