package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Errors returned by Worker.Post.
var (
	ErrWorkerBusy    = errors.New("import worker is busy")
	ErrWorkerStopped = errors.New("import worker is stopped")
)

// WorkerConfig holds the buffer sizes of a Worker's channels.
type WorkerConfig struct {
	// InboxSize bounds the number of queued run requests.
	InboxSize int

	// OutboxSize bounds the number of undelivered messages before the
	// worker blocks.
	OutboxSize int
}

// DefaultWorkerConfig returns a WorkerConfig with reasonable defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		InboxSize:  1,
		OutboxSize: 64,
	}
}

// Worker runs import requests on its own goroutine. It shares nothing with
// its owner: requests come in and messages go out as encoded bytes.
type Worker struct {
	pipeline *Pipeline
	inbox    chan []byte
	outbox   chan []byte
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	started  bool
	stopped  bool
	logger   *slog.Logger
}

// NewWorker creates a worker that executes runs with pipeline.
func NewWorker(pipeline *Pipeline, config WorkerConfig, logger *slog.Logger) *Worker {
	if config.InboxSize <= 0 {
		config.InboxSize = 1
	}
	if config.OutboxSize <= 0 {
		config.OutboxSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		pipeline: pipeline,
		inbox:    make(chan []byte, config.InboxSize),
		outbox:   make(chan []byte, config.OutboxSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With("component", "import_worker"),
	}
}

// Start launches the worker goroutine. Its first message is workerReady.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true

	w.wg.Add(1)
	go w.loop()
}

// Stop cancels the current run and waits for the goroutine to exit. The
// message channel is closed afterwards.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	close(w.outbox)
}

// Post queues an encoded RunRequest.
func (w *Worker) Post(raw []byte) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrWorkerStopped
	}

	select {
	case w.inbox <- raw:
		return nil
	default:
		return ErrWorkerBusy
	}
}

// Messages returns the stream of encoded messages produced by the worker.
func (w *Worker) Messages() <-chan []byte {
	return w.outbox
}

func (w *Worker) loop() {
	defer w.wg.Done()

	w.logger.Debug("starting import worker")
	if !w.publish(Message{Version: ProtocolVersion, Type: MsgWorkerReady}) {
		return
	}

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("stopping import worker")
			return

		case raw := <-w.inbox:
			w.handle(raw)
		}
	}
}

func (w *Worker) handle(raw []byte) {
	var req RunRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		w.logger.Error("failed to decode run request", "error", err)
		w.publishFatal("", fmt.Sprintf("invalid run request: %v", err), 0)
		return
	}
	if req.Version != ProtocolVersion {
		w.logger.Error("unsupported run request version", "version", req.Version)
		w.publishFatal(req.RunID, fmt.Sprintf("unsupported protocol version %d", req.Version), len(req.Files))
		return
	}

	w.logger.Info("starting import run", "run_id", req.RunID, "file_count", len(req.Files))
	w.pipeline.Run(w.ctx, req.RunID, req.Files, func(msg Message) {
		w.publish(msg)
	})
}

// publishFatal reports a request that never reached the pipeline.
func (w *Worker) publishFatal(runID, message string, total int) {
	fatal, err := NewMessage(MsgFatalError, runID, FatalPayload{Message: message})
	if err == nil {
		w.publish(fatal)
	}
	complete, err := NewMessage(MsgComplete, runID, CompletePayload{Total: total})
	if err == nil {
		w.publish(complete)
	}
}

func (w *Worker) publish(msg Message) bool {
	raw, err := EncodeMessage(msg)
	if err != nil {
		w.logger.Error("failed to encode message", "error", err, "type", msg.Type)
		return false
	}

	select {
	case w.outbox <- raw:
		return true
	case <-w.ctx.Done():
		return false
	}
}
