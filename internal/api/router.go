package api

import (
	"log/slog"
	"net/http"

	apiMiddleware "github.com/bookwith/reader-core/internal/api/middleware"
	"github.com/bookwith/reader-core/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the status API.
func NewRouter(reg *registry.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(logger))

	tasks := NewTaskHandler(reg, logger)
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", tasks.ListTasks)
		r.Get("/{id}", tasks.GetTask)
		r.Delete("/{id}", tasks.CancelTask)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
