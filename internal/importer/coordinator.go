package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookwith/reader-core/internal/config"
	"github.com/bookwith/reader-core/internal/domain"
	"github.com/bookwith/reader-core/internal/progress"
	"github.com/bookwith/reader-core/internal/registry"
)

// ErrFatalRun is returned when a run crashed as a whole, as opposed to
// individual files failing.
var ErrFatalRun = errors.New("import run failed")

// FileError describes one file that could not be imported.
type FileError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Result summarizes an import run.
type Result struct {
	Added     []domain.Book `json:"added"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []FileError   `json:"errors,omitempty"`
}

// Coordinator drives import runs and mirrors their progress into the task
// registry. Small batches run inline; larger ones are delegated to a Worker.
type Coordinator struct {
	pipeline     *Pipeline
	registry     *registry.Registry
	threshold    int
	workerConfig WorkerConfig
	logger       *slog.Logger
}

// NewCoordinator creates a coordinator. Batches of at least
// cfg.WorkerThreshold files run on a Worker.
func NewCoordinator(pipeline *Pipeline, reg *registry.Registry, cfg config.ImportConfig, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		pipeline:     pipeline,
		registry:     reg,
		threshold:    cfg.WorkerThreshold,
		workerConfig: DefaultWorkerConfig(),
		logger:       logger.With("component", "import_coordinator"),
	}
}

// Import registers files with the library. Per-file failures are reported
// in the Result; only a crashed run returns ErrFatalRun. The registry task
// always ends at 100% before it is removed.
func (c *Coordinator) Import(ctx context.Context, files []File) (Result, error) {
	if len(files) == 0 {
		return Result{}, nil
	}

	runID := registry.NewID("run")
	taskID := registry.NewID("import")
	total := len(files)
	start := progress.Overall(total)

	c.registry.Add(registry.Task{
		ID:          taskID,
		Message:     fmt.Sprintf("Importing %d files", total),
		Kind:        registry.KindGlobal,
		Progress:    &start,
		SubTasks:    &progress.SubTasks{FilesTotal: total},
		Cancellable: true,
	})

	t := &tracker{
		registry: c.registry,
		taskID:   taskID,
		runID:    runID,
		total:    total,
		logger:   c.logger.With("run_id", runID, "task_id", taskID),
	}
	defer t.finish()

	var err error
	if total < c.threshold {
		c.logger.Debug("running import inline", "file_count", total)
		err = c.runInline(ctx, runID, files, t)
	} else {
		c.logger.Debug("delegating import to worker", "file_count", total)
		err = c.runOnWorker(ctx, runID, files, t)
	}
	if err != nil {
		return t.result, err
	}

	if t.fatal != "" {
		return t.result, fmt.Errorf("%w: %s", ErrFatalRun, t.fatal)
	}
	return t.result, nil
}

func (c *Coordinator) runInline(ctx context.Context, runID string, files []File, t *tracker) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.pipeline.Run(runCtx, runID, files, func(msg Message) {
		t.handle(msg)
		if t.cancelled() {
			cancel()
		}
	})
	return nil
}

func (c *Coordinator) runOnWorker(ctx context.Context, runID string, files []File, t *tracker) error {
	req, err := json.Marshal(RunRequest{Version: ProtocolVersion, RunID: runID, Files: files})
	if err != nil {
		return fmt.Errorf("failed to encode run request: %w", err)
	}

	worker := NewWorker(c.pipeline, c.workerConfig, c.logger)
	worker.Start()
	defer worker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-worker.Messages():
			if !ok {
				return fmt.Errorf("%w: worker exited before completing", ErrFatalRun)
			}
			msg, err := DecodeMessage(raw)
			if err != nil {
				t.logger.Error("dropping undecodable worker message", "error", err)
				continue
			}

			if msg.Type == MsgWorkerReady {
				if err := worker.Post(req); err != nil {
					return fmt.Errorf("failed to start import run: %w", err)
				}
				continue
			}

			t.handle(msg)
			if msg.Terminal() {
				return nil
			}
			if t.cancelled() {
				t.logger.Info("import task removed, abandoning run")
				return nil
			}
		}
	}
}

// tracker folds run messages into the registry task and the Result.
type tracker struct {
	registry *registry.Registry
	taskID   string
	runID    string
	total    int
	current  int
	sub      progress.SubTasks
	result   Result
	fatal    string
	logger   *slog.Logger
}

func (t *tracker) handle(msg Message) {
	if msg.RunID != t.runID {
		t.logger.Debug("ignoring message from another run", "type", msg.Type, "message_run_id", msg.RunID)
		return
	}

	switch msg.Type {
	case MsgStart:
		var p StartPayload
		if t.decode(msg, &p) {
			t.sub.FilesTotal = p.Total
		}

	case MsgFileProgress:
		var p FileProgressPayload
		if !t.decode(msg, &p) {
			return
		}
		t.sub.CurrentFileName = p.Name
		label := fmt.Sprintf("Importing %s (%d/%d)", p.Name, p.Index+1, t.total)
		t.advance(progress.Fold(p.Index, p.Progress, t.total), &label)

	case MsgUpdateOverall:
		var p OverallPayload
		if !t.decode(msg, &p) {
			return
		}
		t.sub.FilesCompleted = p.Completed
		t.result.Succeeded = p.Success
		t.result.Failed = p.Failed
		t.advance(progress.Fold(p.Completed, 0, t.total), nil)

	case MsgError:
		var p ErrorPayload
		if t.decode(msg, &p) {
			t.result.Errors = append(t.result.Errors, FileError(p))
		}

	case MsgComplete:
		var p CompletePayload
		if !t.decode(msg, &p) {
			return
		}
		t.result.Succeeded = p.Success
		t.result.Failed = p.Failed
		t.result.Added = p.Added

	case MsgFatalError:
		var p FatalPayload
		if t.decode(msg, &p) {
			t.fatal = p.Message
		} else {
			t.fatal = "unknown failure"
		}

	default:
		t.logger.Warn("ignoring unknown message type", "type", msg.Type)
	}
}

// advance publishes p unless it would move the bar backwards.
func (t *tracker) advance(p progress.Progress, label *string) {
	if p.Current < t.current {
		p.Current = t.current
	}
	t.current = p.Current
	sub := t.sub
	t.registry.Update(t.taskID, registry.TaskUpdate{
		Message:  label,
		Progress: &p,
		SubTasks: &sub,
	})
}

func (t *tracker) decode(msg Message, v interface{}) bool {
	if err := msg.DecodePayload(v); err != nil {
		t.logger.Error("failed to decode message payload", "error", err, "type", msg.Type)
		return false
	}
	return true
}

// cancelled reports whether the task was removed by someone else.
func (t *tracker) cancelled() bool {
	return !t.registry.Has(t.taskID)
}

// finish pins the task at 100% with no current file, then removes it.
func (t *tracker) finish() {
	done := progress.Complete(t.total)
	t.current = done.Current
	t.sub.CurrentFileName = ""
	sub := t.sub
	msg := fmt.Sprintf("Imported %d of %d files", t.result.Succeeded, t.total)
	t.registry.Update(t.taskID, registry.TaskUpdate{
		Message:  &msg,
		Progress: &done,
		SubTasks: &sub,
	})
	t.registry.Remove(t.taskID)
}
