package middleware

import (
	"log/slog"
	"net/http"

	"github.com/bookwith/reader-core/internal/api/shared"
)

// NewTraceMiddleware tags every request with a trace ID and logs it.
func NewTraceMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())

			logger.Debug("request started",
				"trace_id", shared.GetTraceID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
