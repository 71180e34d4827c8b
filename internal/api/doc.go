// Package api exposes the task registry over HTTP so that a UI shell, or
// any other local observer, can render the global progress indicator and
// cancel tasks that allow it.
package api
