package main

import (
	"context"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/bookwith/reader-core/internal/events"
	"github.com/bookwith/reader-core/internal/registry"
)

// progressRenderer draws the primary global task as a progress bar. It is
// driven by registry events and always reflects the latest snapshot.
type progressRenderer struct {
	registry *registry.Registry
	out      io.Writer

	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	taskID string
}

var _ events.Handler = (*progressRenderer)(nil)

func newProgressRenderer(reg *registry.Registry, out io.Writer) *progressRenderer {
	return &progressRenderer{registry: reg, out: out}
}

// HandleEvent redraws on every registry change.
func (r *progressRenderer) HandleEvent(_ context.Context, _ *events.TaskEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.registry.Primary()
	if !ok || task.Progress == nil {
		r.clearLocked()
		return nil
	}

	if r.bar == nil || r.taskID != task.ID {
		r.clearLocked()
		r.taskID = task.ID
		r.bar = progressbar.NewOptions(task.Progress.Total,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription(task.Message),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	r.bar.ChangeMax(task.Progress.Total)
	r.bar.Describe(task.Message)
	return r.bar.Set(task.Progress.Current)
}

// Close removes any bar still on screen.
func (r *progressRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

// current returns the id of the task being drawn.
func (r *progressRenderer) current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taskID
}

func (r *progressRenderer) clearLocked() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
	r.taskID = ""
}
