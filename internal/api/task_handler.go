package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bookwith/reader-core/internal/api/shared"
	"github.com/bookwith/reader-core/internal/domain"
	"github.com/bookwith/reader-core/internal/registry"
	"github.com/go-chi/chi/v5"
)

// TaskListResponse is the body of GET /tasks.
type TaskListResponse struct {
	Tasks     []registry.Task `json:"tasks"`
	IsLoading bool            `json:"is_loading"`
	Primary   *registry.Task  `json:"primary"`
}

// taskListQuery filters GET /tasks.
type taskListQuery struct {
	Kind string `validate:"omitempty,oneof=global local"`
}

// TaskHandler serves the task registry.
type TaskHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewTaskHandler creates a handler over reg.
func NewTaskHandler(reg *registry.Registry, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		registry: reg,
		logger:   logger.With("component", "task_handler"),
	}
}

// ListTasks handles GET /tasks. The optional kind query parameter limits
// the list to global or local tasks; the derived fields always describe the
// whole registry.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := taskListQuery{Kind: r.URL.Query().Get("kind")}
	if err := shared.ValidateRequest(query); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
		return
	}

	tasks := make([]registry.Task, 0)
	for _, t := range h.registry.Snapshot() {
		if query.Kind == "" || string(t.Kind) == query.Kind {
			tasks = append(tasks, t)
		}
	}

	resp := TaskListResponse{
		Tasks:     tasks,
		IsLoading: h.registry.IsLoading(),
	}
	if primary, ok := h.registry.Primary(); ok {
		resp.Primary = &primary
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok := h.registry.Get(id)
	if !ok {
		err := fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// CancelTask handles DELETE /tasks/{id}. Cancelling removes the task from
// the registry; the owning operation stops reporting into it.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, ok := h.registry.Get(id)
	var err error
	switch {
	case !ok:
		err = fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	case !task.Cancellable:
		err = fmt.Errorf("%w: %s", ErrNotCancellable, id)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.registry.Remove(id)
	h.logger.Info("task cancelled", "task_id", id)
	w.WriteHeader(http.StatusNoContent)
}
