package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bookwith/reader-core/internal/domain"
)

// acceptedJob is the reply to create and retry requests.
type acceptedJob struct {
	ID      string           `json:"id"`
	Status  domain.JobStatus `json:"status"`
	Message string           `json:"message"`
}

// CreateJob asks the backend to generate a podcast for a book.
func (c *Client) CreateJob(ctx context.Context, bookID, title string) (domain.Job, error) {
	in := struct {
		BookID string `json:"book_id"`
		Title  string `json:"title,omitempty"`
	}{BookID: bookID, Title: title}

	var out acceptedJob
	ok, err := c.doJSON(ctx, http.MethodPost, "/podcasts", in, &out)
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to create podcast: %w", err)
	}
	if !ok {
		return domain.Job{}, fmt.Errorf("failed to create podcast: %w", ErrNoData)
	}
	return domain.Job{ID: out.ID, BookID: bookID, Status: out.Status, Title: title}, nil
}

// RetryJob restarts generation for a failed podcast.
func (c *Client) RetryJob(ctx context.Context, jobID string) (domain.Job, error) {
	var out acceptedJob
	ok, err := c.doJSON(ctx, http.MethodPost, "/podcasts/"+url.PathEscape(jobID)+"/retry", nil, &out)
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to retry podcast: %w", err)
	}
	if !ok {
		return domain.Job{}, fmt.Errorf("failed to retry podcast: %w", ErrNoData)
	}
	return domain.Job{ID: out.ID, Status: out.Status}, nil
}

// GetJob returns the authoritative state of one podcast.
func (c *Client) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	var job domain.Job
	ok, err := c.doJSON(ctx, http.MethodGet, "/podcasts/"+url.PathEscape(jobID), nil, &job)
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to get podcast: %w", err)
	}
	if !ok {
		return domain.Job{}, fmt.Errorf("failed to get podcast: %w", ErrNoData)
	}
	return job, nil
}

// ListJobs returns every podcast generated for a book.
func (c *Client) ListJobs(ctx context.Context, bookID string) ([]domain.Job, error) {
	var out struct {
		Podcasts []domain.Job `json:"podcasts"`
		Total    int          `json:"total"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/podcasts/book/"+url.PathEscape(bookID), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list podcasts: %w", err)
	}
	return out.Podcasts, nil
}
