package registry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bookwith/reader-core/internal/events"
	"github.com/google/uuid"
)

// state is an immutable snapshot; every mutation publishes a new one.
type state struct {
	tasks   map[string]Task
	order   []string // insertion order, oldest first
	loading bool
}

// Registry is the in-memory store of active tasks. It is safe for concurrent
// use: writers are serialized, readers see a consistent snapshot without
// locking.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[state]
	emitter events.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithEmitter publishes a TaskEvent after every effective mutation.
func WithEmitter(emitter events.Emitter) Option {
	return func(r *Registry) {
		r.emitter = emitter
	}
}

// WithClock overrides the clock used for StartTime.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates an empty registry.
func New(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger: logger.With("component", "task_registry"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(&state{tasks: map[string]Task{}})
	return r
}

// NewID returns a collision-resistant task id with a readable prefix.
func NewID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

// Add inserts task and reports whether it was inserted. Adding an id that
// is already present is a no-op. An empty ID is generated.
func (r *Registry) Add(task Task) bool {
	r.mu.Lock()
	old := r.current.Load()
	if task.ID == "" {
		task.ID = NewID("")
	}
	if _, exists := old.tasks[task.ID]; exists {
		r.mu.Unlock()
		r.logger.Debug("task already registered", "task_id", task.ID)
		return false
	}
	if task.Kind == "" {
		task.Kind = KindGlobal
	}
	if task.StartTime.IsZero() {
		task.StartTime = r.now()
	}
	task = task.merge(TaskUpdate{Progress: task.Progress})

	next := old.copyWith()
	next.tasks[task.ID] = task
	next.order = append(next.order, task.ID)
	next.loading = len(next.tasks) > 0
	r.current.Store(next)
	r.mu.Unlock()

	r.emit(events.TaskAdded, task.ID, task)
	return true
}

// Update merges u into the task with the given id. Unknown ids are ignored:
// the owning operation may already have been removed.
func (r *Registry) Update(id string, u TaskUpdate) {
	r.mu.Lock()
	old := r.current.Load()
	existing, ok := old.tasks[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	updated := existing.merge(u)
	next := old.copyWith()
	next.tasks[id] = updated
	r.current.Store(next)
	r.mu.Unlock()

	r.emit(events.TaskUpdated, id, updated)
}

// Remove deletes the task. It is idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	old := r.current.Load()
	if _, ok := old.tasks[id]; !ok {
		r.mu.Unlock()
		return
	}

	next := old.copyWith()
	delete(next.tasks, id)
	order := make([]string, 0, len(next.order))
	for _, existing := range next.order {
		if existing != id {
			order = append(order, existing)
		}
	}
	next.order = order
	next.loading = len(next.tasks) > 0
	r.current.Store(next)
	r.mu.Unlock()

	r.emit(events.TaskRemoved, id, nil)
}

// Get returns a copy of the task with the given id.
func (r *Registry) Get(id string) (Task, bool) {
	t, ok := r.current.Load().tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.current.Load().tasks[id]
	return ok
}

// IsLoading reports whether any task is active.
func (r *Registry) IsLoading() bool {
	return r.current.Load().loading
}

// Primary returns the most recently added global task.
func (r *Registry) Primary() (Task, bool) {
	s := r.current.Load()
	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.tasks[s.order[i]]
		if t.Kind == KindGlobal {
			return t.clone(), true
		}
	}
	return Task{}, false
}

// Snapshot returns copies of all tasks in insertion order.
func (r *Registry) Snapshot() []Task {
	s := r.current.Load()
	out := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].clone())
	}
	return out
}

func (s *state) copyWith() *state {
	tasks := make(map[string]Task, len(s.tasks)+1)
	for k, v := range s.tasks {
		tasks[k] = v
	}
	order := make([]string, len(s.order), len(s.order)+1)
	copy(order, s.order)
	return &state{tasks: tasks, order: order, loading: s.loading}
}

func (r *Registry) emit(eventType events.EventType, id string, task interface{}) {
	if r.emitter == nil {
		return
	}
	event, err := events.NewTaskEvent(eventType, id, task)
	if err != nil {
		r.logger.Error("failed to build task event", "error", err, "task_id", id)
		return
	}
	if err := r.emitter.EmitEvent(context.Background(), event); err != nil {
		r.logger.Warn("task event handler failed", "error", err, "task_id", id)
	}
}
