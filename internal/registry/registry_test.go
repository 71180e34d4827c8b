package registry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bookwith/reader-core/internal/events"
	"github.com/bookwith/reader-core/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdd(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := New(testLogger(), WithClock(func() time.Time { return fixed }))

	assert.False(t, r.IsLoading())
	require.True(t, r.Add(Task{ID: "import-1", Message: "Importing"}))
	assert.True(t, r.IsLoading())

	got, ok := r.Get("import-1")
	require.True(t, ok)
	assert.Equal(t, KindGlobal, got.Kind, "kind defaults to global")
	assert.Equal(t, fixed, got.StartTime)

	t.Run("duplicate id is a no-op", func(t *testing.T) {
		assert.False(t, r.Add(Task{ID: "import-1", Message: "other"}))
		got, _ := r.Get("import-1")
		assert.Equal(t, "Importing", got.Message)
		assert.Len(t, r.Snapshot(), 1)
	})

	t.Run("empty id is generated", func(t *testing.T) {
		require.True(t, r.Add(Task{Kind: KindLocal}))
		assert.Len(t, r.Snapshot(), 2)
	})
}

func TestAddClampsProgress(t *testing.T) {
	r := New(testLogger())
	r.Add(Task{ID: "a", Progress: &progress.Progress{Current: 12, Total: 10}})

	got, _ := r.Get("a")
	assert.Equal(t, 10, got.Progress.Current)
}

func TestUpdate(t *testing.T) {
	r := New(testLogger())
	r.Add(Task{ID: "a", Message: "start"})

	r.Update("a", TaskUpdate{Progress: &progress.Progress{Current: 30, Total: 100}})
	r.Update("a", TaskUpdate{SubTasks: &progress.SubTasks{FilesTotal: 2, CurrentFileName: "x.epub"}})

	got, _ := r.Get("a")
	assert.Equal(t, "start", got.Message, "message is untouched by a progress update")
	assert.Equal(t, 30, got.Progress.Current)
	assert.Equal(t, "x.epub", got.SubTasks.CurrentFileName)

	r.Update("a", WithMessage("almost"))
	got, _ = r.Get("a")
	assert.Equal(t, "almost", got.Message)
	assert.Equal(t, 30, got.Progress.Current)
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	r := New(testLogger())
	r.Add(Task{ID: "a"})
	before := r.Snapshot()

	assert.NotPanics(t, func() {
		r.Update("missing", WithMessage("late"))
		r.Remove("missing")
		r.Remove("missing")
	})
	assert.Equal(t, before, r.Snapshot())
	assert.True(t, r.IsLoading())
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := New(testLogger())
	r.Add(Task{ID: "a"})
	r.Remove("a")
	r.Remove("a")

	assert.False(t, r.IsLoading())
	assert.False(t, r.Has("a"))
}

func TestPrimary(t *testing.T) {
	r := New(testLogger())

	_, ok := r.Primary()
	assert.False(t, ok)

	r.Add(Task{ID: "first", Kind: KindGlobal})
	r.Add(Task{ID: "second", Kind: KindGlobal})
	r.Add(Task{ID: "local", Kind: KindLocal})

	got, ok := r.Primary()
	require.True(t, ok)
	assert.Equal(t, "second", got.ID, "most recently added global task wins")

	r.Remove("second")
	got, _ = r.Primary()
	assert.Equal(t, "first", got.ID)

	r.Remove("first")
	_, ok = r.Primary()
	assert.False(t, ok, "local tasks never become primary")
	assert.True(t, r.IsLoading(), "local task still counts as loading")
}

func TestReadersNeverSeeCallerMutations(t *testing.T) {
	r := New(testLogger())
	p := progress.Progress{Current: 1, Total: 10}
	r.Add(Task{ID: "a", Progress: &p})
	p.Current = 9

	got, _ := r.Get("a")
	assert.Equal(t, 1, got.Progress.Current)

	got.Progress.Current = 5
	again, _ := r.Get("a")
	assert.Equal(t, 1, again.Progress.Current)
}

func TestConcurrentWritersOnDisjointKeys(t *testing.T) {
	r := New(testLogger())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		id := NewID("job")
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(Task{ID: id})
			for c := 0; c <= 100; c += 10 {
				r.Update(id, TaskUpdate{Progress: &progress.Progress{Current: c, Total: 100}})
				_ = r.Snapshot()
			}
			r.Remove(id)
		}()
	}
	wg.Wait()

	assert.Empty(t, r.Snapshot())
	assert.False(t, r.IsLoading())
}

func TestEmitsEvents(t *testing.T) {
	emitter := events.NewInMemoryEmitter(testLogger())
	var mu sync.Mutex
	var seen []events.EventType
	emitter.Subscribe(events.HandlerFunc(func(_ context.Context, e *events.TaskEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
		return nil
	}))

	r := New(testLogger(), WithEmitter(emitter))
	r.Add(Task{ID: "a"})
	r.Add(Task{ID: "a"})
	r.Update("a", WithMessage("x"))
	r.Update("missing", WithMessage("x"))
	r.Remove("a")
	r.Remove("a")

	assert.Equal(t, []events.EventType{events.TaskAdded, events.TaskUpdated, events.TaskRemoved}, seen)
}

func TestNewID(t *testing.T) {
	a, b := NewID("import"), NewID("import")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "import-")
	assert.NotEmpty(t, NewID(""))
}
