package podcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/bookwith/reader-core/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService scripts backend responses.
type fakeService struct {
	mu sync.Mutex

	created   domain.Job
	createErr error

	retried  domain.Job
	retryErr error
	// onRetry runs before RetryJob returns.
	onRetry func()

	// statuses are returned by successive GetJob calls; the last one
	// repeats. A nil entry in getErrs at the same index fails that call.
	statuses []domain.JobStatus
	getErrs  []error
	getCalls int

	lists     map[string][]domain.Job
	listCalls int
}

func (s *fakeService) CreateJob(ctx context.Context, bookID, title string) (domain.Job, error) {
	if s.createErr != nil {
		return domain.Job{}, s.createErr
	}
	job := s.created
	job.BookID = bookID
	job.Title = title
	return job, nil
}

func (s *fakeService) RetryJob(ctx context.Context, jobID string) (domain.Job, error) {
	if s.onRetry != nil {
		s.onRetry()
	}
	if s.retryErr != nil {
		return domain.Job{}, s.retryErr
	}
	job := s.retried
	job.ID = jobID
	return job, nil
}

func (s *fakeService) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.getCalls
	s.getCalls++
	if i < len(s.getErrs) && s.getErrs[i] != nil {
		return domain.Job{}, s.getErrs[i]
	}
	if len(s.statuses) == 0 {
		return domain.Job{}, errors.New("no status scripted")
	}
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	return domain.Job{ID: jobID, Status: s.statuses[i]}, nil
}

func (s *fakeService) ListJobs(ctx context.Context, bookID string) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return s.lists[bookID], nil
}

func (s *fakeService) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}
