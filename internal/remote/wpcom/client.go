// Package wpcom updates media metadata through the WordPress.com REST API.
package wpcom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/inkpress/mediaedit/internal/domain"
	"github.com/inkpress/mediaedit/pkg/httpclient"
)

// Client posts media edits to {BaseURL}/sites/{blog}/media/{id}/edit.
type Client struct {
	http    httpclient.Doer
	baseURL string
	token   string
}

// NewClient creates a client. baseURL is the REST root, for example
// https://public-api.wordpress.com/rest/v1.1.
func NewClient(doer httpclient.Doer, baseURL, token string) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Name implements remote.Client.
func (c *Client) Name() string { return "wpcom" }

func (c *Client) endpoint(req domain.EditRequest) string {
	return fmt.Sprintf("%s/sites/%s/media/%s/edit",
		c.baseURL, url.PathEscape(req.BlogID), url.PathEscape(req.MediaID))
}

// Update sends title, caption and description as form fields.
func (c *Client) Update(ctx context.Context, req domain.EditRequest) error {
	form := url.Values{}
	form.Set("title", req.Title)
	form.Set("caption", req.Caption)
	form.Set("description", req.Description)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build media edit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRemoteUpdateFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %w", domain.ErrRemoteUpdateFailure, httpclient.ParseResponseError(resp, c.Name()))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}
