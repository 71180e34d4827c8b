package registry

import (
	"time"

	"github.com/bookwith/reader-core/internal/progress"
)

// Kind decides whether a task drives the global indicator.
type Kind string

const (
	KindGlobal Kind = "global"
	KindLocal  Kind = "local"
)

// Task is one user-visible in-progress operation.
type Task struct {
	ID          string             `json:"id"`
	Message     string             `json:"message,omitempty"`
	Kind        Kind               `json:"kind"`
	Progress    *progress.Progress `json:"progress,omitempty"`
	SubTasks    *progress.SubTasks `json:"sub_tasks,omitempty"`
	StartTime   time.Time          `json:"start_time"`
	Cancellable bool               `json:"cancellable"`
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Message  *string
	Progress *progress.Progress
	SubTasks *progress.SubTasks
}

// WithMessage returns an update that only sets the message.
func WithMessage(msg string) TaskUpdate {
	return TaskUpdate{Message: &msg}
}

// clone returns a deep copy so callers never share pointers with the store.
func (t Task) clone() Task {
	if t.Progress != nil {
		p := *t.Progress
		t.Progress = &p
	}
	if t.SubTasks != nil {
		s := *t.SubTasks
		t.SubTasks = &s
	}
	return t
}

// merge applies u to a copy of t.
func (t Task) merge(u TaskUpdate) Task {
	out := t.clone()
	if u.Message != nil {
		out.Message = *u.Message
	}
	if u.Progress != nil {
		p := u.Progress.Clamp()
		out.Progress = &p
	}
	if u.SubTasks != nil {
		s := *u.SubTasks
		out.SubTasks = &s
	}
	return out
}
