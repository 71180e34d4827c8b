package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bookwith/reader-core/internal/domain"
)

// ErrNoData is returned when an endpoint that must return a body answered
// with 204 or an empty body.
var ErrNoData = errors.New("response contained no data")

// APIError is a request the backend rejected.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Is lets callers match a 404 against domain.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrNotFound && e.StatusCode == http.StatusNotFound
}
