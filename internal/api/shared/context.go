package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of request context keys set by this package.
type ContextKey string

// TraceIDKey holds the trace ID of a request.
const TraceIDKey ContextKey = "traceID"

// SetTraceID returns ctx carrying a fresh trace ID.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, newTraceID())
}

// GetTraceID returns the trace ID of ctx, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// newTraceID returns 32 hex characters.
func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
