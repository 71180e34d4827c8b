package podcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bookwith/reader-core/internal/config"
	"github.com/bookwith/reader-core/internal/domain"
	"github.com/bookwith/reader-core/internal/registry"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 5 * time.Second

// ErrEmptyBookID is returned by Create without a book.
var ErrEmptyBookID = errors.New("book id is required")

// Service is the backend's job lifecycle API.
type Service interface {
	CreateJob(ctx context.Context, bookID, title string) (domain.Job, error)
	RetryJob(ctx context.Context, jobID string) (domain.Job, error)
	GetJob(ctx context.Context, jobID string) (domain.Job, error)
	ListJobs(ctx context.Context, bookID string) ([]domain.Job, error)
}

// UpdateFunc receives every authoritative job read made while polling.
type UpdateFunc func(domain.Job)

// Handle controls one polling loop.
type Handle struct {
	jobID     string
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}

	// deliverMu is held while an update is delivered, so Cancel returns only
	// once no delivery is in flight.
	deliverMu sync.Mutex

	mu   sync.Mutex
	last domain.Job
	err  error
}

// Cancel stops the loop. No update is delivered after Cancel returns. It
// must not be called from an UpdateFunc of the same loop.
func (h *Handle) Cancel() {
	h.deliverMu.Lock()
	h.cancelled.Store(true)
	h.deliverMu.Unlock()
	h.cancel()
}

// stopped reports whether the loop was cancelled through the handle or
// its context.
func (h *Handle) stopped(ctx context.Context) bool {
	return h.cancelled.Load() || ctx.Err() != nil
}

// deliver runs fn unless the loop has been stopped.
func (h *Handle) deliver(ctx context.Context, fn func()) bool {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()
	if h.stopped(ctx) {
		return false
	}
	fn()
	return true
}

// Done is closed when the loop exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the loop exits and returns the last job observed. The
// error is non-nil when the loop was cancelled before a terminal status.
func (h *Handle) Wait() (domain.Job, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.err
}

func (h *Handle) finish(last domain.Job, err error) {
	h.mu.Lock()
	h.last = last
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Poller creates, retries and follows podcast jobs.
type Poller struct {
	service  Service
	cache    *JobCache
	view     *JobsView
	registry *registry.Registry
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*Handle
	onJob  UpdateFunc
}

// NewPoller creates a poller. The view receives every job the poller reads.
func NewPoller(service Service, cache *JobCache, view *JobsView, reg *registry.Registry, cfg config.PodcastConfig, logger *slog.Logger) *Poller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		service:  service,
		cache:    cache,
		view:     view,
		registry: reg,
		interval: interval,
		logger:   logger.With("component", "podcast_poller"),
		active:   make(map[string]*Handle),
	}
}

// OnUpdate registers fn to observe jobs followed by Create and Retry.
func (p *Poller) OnUpdate(fn UpdateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onJob = fn
}

// View returns the job view maintained by the poller.
func (p *Poller) View() *JobsView {
	return p.view
}

// Create asks the backend for a new podcast. When the job is accepted as
// PENDING or PROCESSING it is followed until it reaches a terminal status;
// the loop is available through Handle.
func (p *Poller) Create(ctx context.Context, bookID, title string) (domain.Job, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return domain.Job{}, ErrEmptyBookID
	}
	if strings.TrimSpace(title) == "" {
		title = domain.DefaultJobTitle(bookID)
	}

	job, err := p.service.CreateJob(ctx, bookID, title)
	if err != nil {
		p.logger.Error("failed to create podcast", "error", err, "book_id", bookID)
		return domain.Job{}, err
	}
	if job.BookID == "" {
		job.BookID = bookID
	}
	if job.Title == "" {
		job.Title = title
	}

	p.logger.Info("podcast accepted", "job_id", job.ID, "book_id", bookID, "status", job.Status)
	p.view.ApplyJob(job)
	if job.Status.IsActive() {
		p.follow(ctx, job)
	}
	return job, nil
}

// Retry restarts a failed job. The job is shown as PROCESSING before the
// request is sent; if the request fails that hint is dropped again. Jobs
// known to be in any status other than FAILED are rejected locally.
func (p *Poller) Retry(ctx context.Context, jobID string) (domain.Job, error) {
	if known, ok := p.view.Job(jobID); ok && !domain.CanTransition(known.Status, domain.JobStatusPending) {
		return domain.Job{}, fmt.Errorf("%w: cannot retry %s job %s", domain.ErrInvalidTransition, known.Status, jobID)
	}
	p.view.MarkRetrying(jobID)

	job, err := p.service.RetryJob(ctx, jobID)
	if err != nil {
		p.view.ClearHint(jobID)
		p.logger.Error("failed to retry podcast", "error", err, "job_id", jobID)
		return domain.Job{}, err
	}

	if known, ok := p.view.Job(jobID); ok {
		if job.BookID == "" {
			job.BookID = known.BookID
		}
		if job.Title == "" {
			job.Title = known.Title
		}
	}

	p.logger.Info("podcast retry accepted", "job_id", jobID, "status", job.Status)
	if !job.Status.IsActive() {
		p.view.ClearHint(jobID)
		return job, nil
	}
	p.follow(ctx, job)
	return job, nil
}

// ListJobs returns the jobs of a book, served from the cache when possible.
func (p *Poller) ListJobs(ctx context.Context, bookID string) ([]domain.Job, error) {
	if jobs, ok := p.cache.Get(bookID); ok {
		p.view.Load(bookID, jobs)
		return p.view.Jobs(bookID), nil
	}

	jobs, err := p.service.ListJobs(ctx, bookID)
	if err != nil {
		return nil, err
	}
	p.cache.Put(bookID, jobs)
	p.view.Replace(bookID, jobs)
	return p.view.Jobs(bookID), nil
}

// Handle returns the loop following jobID, if any.
func (p *Poller) Handle(jobID string) (*Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.active[jobID]
	return h, ok
}

// Close cancels every loop and waits for them to exit.
func (p *Poller) Close() {
	p.mu.Lock()
	handles := make([]*Handle, 0, len(p.active))
	for _, h := range p.active {
		handles = append(handles, h)
	}
	p.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
		<-h.Done()
	}
}

// follow starts a loop for job, replacing any loop already following it.
// Finished loops stay reachable through Handle until replaced.
func (p *Poller) follow(ctx context.Context, job domain.Job) {
	p.mu.Lock()
	if prev, ok := p.active[job.ID]; ok {
		prev.Cancel()
	}
	for id, h := range p.active {
		select {
		case <-h.Done():
			delete(p.active, id)
		default:
		}
	}
	onJob := p.onJob
	p.mu.Unlock()

	h := p.start(ctx, job.ID, job.BookID, job.Title, func(j domain.Job) {
		p.view.ApplyJob(j)
		if onJob != nil {
			onJob(j)
		}
	}, p.interval)

	p.mu.Lock()
	p.active[job.ID] = h
	p.mu.Unlock()
}

// PollUntilTerminal checks jobID every interval until it is COMPLETED or
// FAILED, then invalidates the cached job list of its book. Failed polls are
// logged and retried on the next tick.
func (p *Poller) PollUntilTerminal(ctx context.Context, jobID string, onUpdate UpdateFunc, interval time.Duration) *Handle {
	bookID, title := "", ""
	if known, ok := p.view.Job(jobID); ok {
		bookID, title = known.BookID, known.Title
	}
	return p.start(ctx, jobID, bookID, title, onUpdate, interval)
}

func (p *Poller) start(ctx context.Context, jobID, bookID, title string, onUpdate UpdateFunc, interval time.Duration) *Handle {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	pollCtx, cancel := context.WithCancel(ctx)
	h := &Handle{jobID: jobID, cancel: cancel, done: make(chan struct{})}

	taskID := registry.NewID("podcast")
	if title == "" {
		title = jobID
	}
	p.registry.Add(registry.Task{
		ID:          taskID,
		Message:     fmt.Sprintf("Generating podcast %q", title),
		Kind:        registry.KindLocal,
		Cancellable: true,
	})

	go func() {
		last, err := p.loop(pollCtx, h, taskID, bookID, onUpdate, interval)
		p.registry.Remove(taskID)
		cancel()
		h.finish(last, err)
	}()
	return h
}

func (p *Poller) loop(ctx context.Context, h *Handle, taskID, bookID string, onUpdate UpdateFunc, interval time.Duration) (domain.Job, error) {
	logger := p.logger.With("job_id", h.jobID, "task_id", taskID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last domain.Job
	for {
		select {
		case <-ctx.Done():
			logger.Debug("polling cancelled")
			return last, ctx.Err()

		case <-ticker.C:
			if !p.registry.Has(taskID) {
				logger.Debug("polling task removed, stopping")
				h.cancelled.Store(true)
				return last, context.Canceled
			}

			job, err := p.service.GetJob(ctx, h.jobID)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("podcast poll failed", "error", err)
				}
				continue
			}
			if h.stopped(ctx) {
				return last, context.Canceled
			}

			if job.BookID == "" {
				job.BookID = bookID
			}
			p.registry.Update(taskID, registry.WithMessage(fmt.Sprintf("Podcast %s", strings.ToLower(string(job.Status)))))

			// Registry handlers run synchronously and Cancel may have
			// returned while they did.
			delivered := h.deliver(ctx, func() {
				if onUpdate != nil {
					onUpdate(job)
				}
			})
			if !delivered {
				logger.Debug("polling cancelled before update")
				return last, context.Canceled
			}
			last = job

			if job.Status.IsTerminal() {
				logger.Info("podcast reached terminal status", "status", job.Status)
				if job.BookID != "" {
					p.cache.Invalidate(job.BookID)
				}
				return job, nil
			}
		}
	}
}
