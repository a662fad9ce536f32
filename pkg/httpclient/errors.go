package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/inkpress/mediaedit/pkg/errors"
)

// APIErrorBody is the error payload of the media REST API:
// {"error": "unauthorized", "message": "..."}.
type APIErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes a non-2xx response body and converts
// it into an error. Known statuses map onto AppErrors.
func ParseResponseError(resp *http.Response, remote string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", remote, resp.StatusCode, err)
	}

	var body APIErrorBody
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		body = APIErrorBody{Error: http.StatusText(resp.StatusCode), Message: string(raw)}
	}
	return mapStatus(resp.StatusCode, body, remote)
}

func mapStatus(status int, body APIErrorBody, remote string) error {
	msg := fmt.Sprintf("%s: %s", remote, body.Message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(remote+" resource", body.Message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case status == http.StatusConflict:
		return apperrors.Conflict(msg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case status == http.StatusGone:
		return apperrors.Gone(msg)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(msg)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", remote, status, body.Error, body.Message)
	default:
		return &apperrors.AppError{Code: body.Error, Message: msg, Status: status}
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
