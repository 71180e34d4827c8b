package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// subscription is one handler and the event types it asked for. An empty
// type set means every type.
type subscription struct {
	id      uint64
	handler Handler
	types   map[EventType]bool
}

func (s subscription) wants(t EventType) bool {
	return len(s.types) == 0 || s.types[t]
}

// InMemoryEmitter fans registry changes out to in-process subscribers. It
// dispatches synchronously, in subscription order, on the goroutine that
// changed the registry; a failing or panicking subscriber never stops the
// others.
type InMemoryEmitter struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

// NewInMemoryEmitter creates an emitter with no subscribers.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	return &InMemoryEmitter{
		logger: logger.With("component", "task_event_emitter"),
	}
}

// Subscribe delivers events of the given types to handler, or all events
// when no type is given. The returned func removes the subscription and is
// safe to call more than once.
func (e *InMemoryEmitter) Subscribe(handler Handler, types ...EventType) func() {
	sub := subscription{handler: handler}
	if len(types) > 0 {
		sub.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	e.mu.Lock()
	e.nextID++
	sub.id = e.nextID
	e.subs = append(e.subs, sub)
	count := len(e.subs)
	e.mu.Unlock()

	e.logger.Debug("subscribed to task events", "subscription_id", sub.id, "types", types, "subscriber_count", count)

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(sub.id) })
	}
}

func (e *InMemoryEmitter) unsubscribe(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// EmitEvent delivers event to every matching subscriber and returns the
// joined errors of those that failed.
func (e *InMemoryEmitter) EmitEvent(ctx context.Context, event *TaskEvent) error {
	e.mu.RLock()
	subs := make([]subscription, 0, len(e.subs))
	for _, s := range e.subs {
		if s.wants(event.Type) {
			subs = append(subs, s)
		}
	}
	e.mu.RUnlock()

	e.logger.Debug("emitting task event",
		"event_type", event.Type,
		"task_id", event.TaskID,
		"subscriber_count", len(subs))

	var errs []error
	for _, s := range subs {
		if err := e.deliver(ctx, s, event); err != nil {
			e.logger.Error("task event subscriber failed",
				"error", err,
				"subscription_id", s.id,
				"event_type", event.Type,
				"task_id", event.TaskID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *InMemoryEmitter) deliver(ctx context.Context, s subscription, event *TaskEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("subscriber panicked: %v", rec)
		}
	}()
	return s.handler.HandleEvent(ctx, event)
}
