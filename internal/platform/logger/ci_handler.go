package logger

import (
	"context"
	"io"
	"log/slog"

	"github.com/bookwith/reader-core/internal/ciutil"
)

// CIHandler is a slog.Handler that adds CI environment metadata to every
// record.
type CIHandler struct {
	handler  slog.Handler
	metadata map[string]string
}

// NewCIHandler creates a new CIHandler that wraps a JSON handler writing to out.
func NewCIHandler(out io.Writer, opts *slog.HandlerOptions) *CIHandler {
	var handlerOpts slog.HandlerOptions
	if opts != nil {
		handlerOpts = *opts
	}

	return &CIHandler{
		handler:  slog.NewJSONHandler(out, &handlerOpts),
		metadata: ciutil.Metadata(),
	}
}

// Enabled implements the slog.Handler interface.
func (h *CIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs implements the slog.Handler interface.
func (h *CIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CIHandler{handler: h.handler.WithAttrs(attrs), metadata: h.metadata}
}

// WithGroup implements the slog.Handler interface.
func (h *CIHandler) WithGroup(name string) slog.Handler {
	return &CIHandler{handler: h.handler.WithGroup(name), metadata: h.metadata}
}

// Handle implements the slog.Handler interface.
func (h *CIHandler) Handle(ctx context.Context, record slog.Record) error {
	enhanced := record.Clone()
	for key, value := range h.metadata {
		enhanced.AddAttrs(slog.String(key, value))
	}
	return h.handler.Handle(ctx, enhanced)
}
