package api

import (
	"errors"
	"net/http"

	"github.com/bookwith/reader-core/internal/domain"
)

// ErrNotCancellable is returned when removing a task that does not allow it.
var ErrNotCancellable = errors.New("task is not cancellable")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking their text.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotCancellable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, domain.ErrNotFound):
		return "Task not found"
	case errors.Is(err, ErrNotCancellable):
		return "Task cannot be cancelled"
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request"
	default:
		return "An unexpected error occurred"
	}
}
