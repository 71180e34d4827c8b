package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a resource does not exist, or is not yet
	// visible to reads after being created.
	ErrNotFound = errors.New("resource not found")

	// ErrEmptyID is returned when a required identifier is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrInvalidJobStatus is returned when a job status is not valid.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrInvalidTransition is returned when a job cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid job status transition")
)
