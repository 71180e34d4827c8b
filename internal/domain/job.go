package domain

import (
	"fmt"
)

// JobStatus represents the processing state of a podcast generation job.
// The backend owns the status; clients only observe it.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// ScriptTurn is one line of a generated podcast script.
type ScriptTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Job is a server-tracked podcast generation for exactly one book.
type Job struct {
	ID           string       `json:"id"`
	BookID       string       `json:"book_id"`
	Status       JobStatus    `json:"status"`
	Title        string       `json:"title"`
	Language     string       `json:"language,omitempty"`
	Script       []ScriptTurn `json:"script,omitempty"`
	AudioURL     string       `json:"audio_url,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// Validate checks if the Job has valid data.
func (j Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: job", ErrEmptyID)
	}
	if !j.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobStatus, j.Status)
	}
	return nil
}

// DefaultJobTitle is used when a podcast is created without a title.
func DefaultJobTitle(bookID string) string {
	return "Podcast for book " + bookID
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further server-side transitions will happen
// without a user action.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsActive reports whether the job is still being worked on by the backend.
func (s JobStatus) IsActive() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// CanTransition enforces the job state machine edges.
// FAILED -> PENDING|PROCESSING is the retry edge.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusPending:
		return to == JobStatusProcessing || to == JobStatusFailed
	case JobStatusProcessing:
		return to == JobStatusCompleted || to == JobStatusFailed
	case JobStatusFailed:
		return to == JobStatusPending || to == JobStatusProcessing
	default:
		return false
	}
}
