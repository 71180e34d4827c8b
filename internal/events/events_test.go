package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockHandler implements the Handler interface for testing
type MockHandler struct {
	LastEvent    *TaskEvent
	HandlerError error
	HandledCount int
}

// HandleEvent implements the Handler interface
func (h *MockHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestNewTaskEvent(t *testing.T) {
	type snapshot struct {
		Message string `json:"message"`
	}

	event, err := NewTaskEvent(TaskAdded, "import-1", snapshot{Message: "Importing"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TaskAdded, event.Type)
	assert.Equal(t, "import-1", event.TaskID)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded snapshot
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "Importing", decoded.Message)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"task.added"`)
}

func TestNewTaskEventWithoutPayload(t *testing.T) {
	event, err := NewTaskEvent(TaskRemoved, "import-1", nil)
	require.NoError(t, err)
	assert.Nil(t, event.Payload)
}

func TestInMemoryEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no subscribers", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)
		event, err := NewTaskEvent(TaskUpdated, "t", nil)
		require.NoError(t, err)
		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("every subscriber receives the event", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)
		handler1 := &MockHandler{}
		handler2 := &MockHandler{}
		emitter.Subscribe(handler1)
		emitter.Subscribe(handler2)

		event, err := NewTaskEvent(TaskUpdated, "t", nil)
		require.NoError(t, err)
		assert.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("failing subscriber does not stop the others", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)
		failing := &MockHandler{HandlerError: errors.New("handler error")}
		success := &MockHandler{}
		emitter.Subscribe(failing)
		emitter.Subscribe(success)

		event, err := NewTaskEvent(TaskUpdated, "t", nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, failing.HandlerError)
		assert.Equal(t, 1, success.HandledCount, "later subscribers still receive the event")
	})

	t.Run("panicking subscriber is isolated", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)
		emitter.Subscribe(HandlerFunc(func(context.Context, *TaskEvent) error {
			panic("renderer broke")
		}))
		success := &MockHandler{}
		emitter.Subscribe(success)

		event, err := NewTaskEvent(TaskAdded, "t", nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "renderer broke")
		assert.Equal(t, 1, success.HandledCount)
	})

	t.Run("subscription filters by type", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)
		var seen []EventType
		emitter.Subscribe(HandlerFunc(func(_ context.Context, e *TaskEvent) error {
			seen = append(seen, e.Type)
			return nil
		}), TaskRemoved)

		for _, typ := range []EventType{TaskAdded, TaskUpdated, TaskRemoved} {
			event, err := NewTaskEvent(typ, "t", nil)
			require.NoError(t, err)
			require.NoError(t, emitter.EmitEvent(context.Background(), event))
		}
		assert.Equal(t, []EventType{TaskRemoved}, seen)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)
		first := &MockHandler{}
		second := &MockHandler{}
		unsubscribe := emitter.Subscribe(first)
		emitter.Subscribe(second)

		unsubscribe()
		unsubscribe()

		event, err := NewTaskEvent(TaskUpdated, "t", nil)
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, 0, first.HandledCount)
		assert.Equal(t, 1, second.HandledCount)
	})
}
