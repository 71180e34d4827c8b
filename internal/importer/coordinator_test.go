package importer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bookwith/reader-core/internal/config"
	"github.com/bookwith/reader-core/internal/events"
	"github.com/bookwith/reader-core/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// progressRecorder captures every task update the registry publishes.
type progressRecorder struct {
	mu      sync.Mutex
	updates []registry.Task
	removed int
}

func (r *progressRecorder) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch event.Type {
	case events.TaskUpdated:
		var task registry.Task
		if err := event.UnmarshalPayload(&task); err != nil {
			return err
		}
		r.updates = append(r.updates, task)
	case events.TaskRemoved:
		r.removed++
	}
	return nil
}

func newTestCoordinator(t *testing.T, lib *fakeLibrary, parser *fakeParser, threshold int) (*Coordinator, *registry.Registry, *progressRecorder) {
	t.Helper()
	rec := &progressRecorder{}
	emitter := events.NewInMemoryEmitter(testLogger())
	emitter.Subscribe(rec)
	reg := registry.New(testLogger(), registry.WithEmitter(emitter))

	pipeline := newTestPipeline(lib, &fakeIndexer{}, parser)
	c := NewCoordinator(pipeline, reg, config.ImportConfig{WorkerThreshold: threshold, CoverMaxWidth: 100}, testLogger())
	return c, reg, rec
}

func scenarioFiles() []File {
	return []File{
		epubFile("bookA.epub"),
		epubFile("bookA.epub"),
		{Name: "notes.txt", MIMEType: "text/plain", Data: []byte("notes")},
	}
}

func TestCoordinatorImportScenario(t *testing.T) {
	for _, tc := range []struct {
		name      string
		threshold int
	}{
		{"inline", 10},
		{"worker", 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lib := &fakeLibrary{}
			c, reg, rec := newTestCoordinator(t, lib, &fakeParser{}, tc.threshold)

			result, err := c.Import(context.Background(), scenarioFiles())
			require.NoError(t, err)

			assert.Equal(t, 1, result.Succeeded)
			assert.Equal(t, 1, result.Failed)
			require.Len(t, result.Added, 1)
			assert.Equal(t, "bookA.epub", result.Added[0].Name)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, "notes.txt", result.Errors[0].Name)

			rec.mu.Lock()
			defer rec.mu.Unlock()
			require.NotEmpty(t, rec.updates)

			last := 0
			for _, u := range rec.updates {
				require.NotNil(t, u.Progress)
				assert.GreaterOrEqual(t, u.Progress.Current, last, "progress never goes backwards")
				last = u.Progress.Current
			}

			final := rec.updates[len(rec.updates)-1]
			assert.Equal(t, 300, final.Progress.Current)
			assert.Equal(t, 300, final.Progress.Total)
			require.NotNil(t, final.SubTasks)
			assert.Empty(t, final.SubTasks.CurrentFileName)
			assert.Equal(t, 3, final.SubTasks.FilesCompleted)

			assert.Equal(t, 1, rec.removed)
			assert.False(t, reg.IsLoading())
		})
	}
}

func TestCoordinatorEveryFileFails(t *testing.T) {
	lib := &fakeLibrary{}
	c, _, rec := newTestCoordinator(t, lib, &fakeParser{fail: map[string]bool{"a.epub": true, "b.epub": true}}, 10)

	result, err := c.Import(context.Background(), []File{epubFile("a.epub"), epubFile("b.epub")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Failed)

	final := rec.updates[len(rec.updates)-1]
	assert.Equal(t, 200, final.Progress.Current)
	assert.Equal(t, 200, final.Progress.Total)
}

func TestCoordinatorFatalRun(t *testing.T) {
	for _, threshold := range []int{1, 10} {
		lib := &fakeLibrary{listErr: errors.New("offline")}
		c, reg, rec := newTestCoordinator(t, lib, &fakeParser{}, threshold)

		_, err := c.Import(context.Background(), []File{epubFile("a.epub")})
		assert.ErrorIs(t, err, ErrFatalRun)

		final := rec.updates[len(rec.updates)-1]
		assert.True(t, final.Progress.Done(), "a crashed run still ends at 100%")
		assert.False(t, reg.IsLoading())
	}
}

func TestCoordinatorSecondRunDedups(t *testing.T) {
	lib := &fakeLibrary{}
	c, _, _ := newTestCoordinator(t, lib, &fakeParser{}, 10)

	_, err := c.Import(context.Background(), []File{epubFile("bookA.epub")})
	require.NoError(t, err)

	result, err := c.Import(context.Background(), []File{epubFile("bookA.epub")})
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, lib.createCalls)
}

func TestCoordinatorEmptyBatch(t *testing.T) {
	c, reg, rec := newTestCoordinator(t, &fakeLibrary{}, &fakeParser{}, 10)

	result, err := c.Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Empty(t, rec.updates)
	assert.Empty(t, reg.Snapshot())
}

func TestTrackerIgnoresOtherRuns(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Add(registry.Task{ID: "import-1"})
	tr := &tracker{registry: reg, taskID: "import-1", runID: "run-1", total: 1, logger: testLogger()}

	msg, err := NewMessage(MsgComplete, "run-0", CompletePayload{Total: 1, Success: 1})
	require.NoError(t, err)
	tr.handle(msg)

	assert.Equal(t, 0, tr.result.Succeeded)
}
