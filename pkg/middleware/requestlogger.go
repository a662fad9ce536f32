package middleware

import (
	"log/slog"
	"net/http"

	"github.com/inkpress/mediaedit/pkg/logger"
)

// SessionHeader optionally names the editor session a request belongs to.
const SessionHeader = "X-Session-ID"

// RequestLogger stores a logger enriched with correlation, session and trace
// ids in the request context. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := r.Header.Get(SessionHeader); id != "" {
				ctx = logger.WithSessionID(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
