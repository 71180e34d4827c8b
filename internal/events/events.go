package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType classifies registry notifications.
type EventType string

const (
	TaskAdded   EventType = "task.added"
	TaskUpdated EventType = "task.updated"
	TaskRemoved EventType = "task.removed"
)

// TaskEvent describes a change to one registry entry.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened to the task
	Type EventType `json:"type"`

	// TaskID is the registry id the event refers to
	TaskID string `json:"task_id"`

	// Payload contains the task snapshot serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskEvent creates a new TaskEvent with the specified type and payload.
func NewTaskEvent(eventType EventType, taskID string, payload interface{}) (*TaskEvent, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = b
	}

	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		TaskID:    taskID,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// Handler defines an interface for components that can handle events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// Emitter defines an interface for components that can emit events.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
