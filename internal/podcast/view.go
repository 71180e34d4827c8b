package podcast

import (
	"sync"

	"github.com/bookwith/reader-core/internal/domain"
)

// JobsView is the locally displayed job list per book. Authoritative reads
// always replace what is stored; optimistic status hints are layered on top
// at read time and never written into the stored jobs.
type JobsView struct {
	mu    sync.RWMutex
	books map[string][]domain.Job
	hints map[string]domain.JobStatus
}

// NewJobsView creates an empty view.
func NewJobsView() *JobsView {
	return &JobsView{
		books: make(map[string][]domain.Job),
		hints: make(map[string]domain.JobStatus),
	}
}

// MarkRetrying shows jobID as PROCESSING until the next authoritative read.
func (v *JobsView) MarkRetrying(jobID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hints[jobID] = domain.JobStatusProcessing
}

// ClearHint drops the optimistic status for jobID.
func (v *JobsView) ClearHint(jobID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.hints, jobID)
}

// ApplyJob stores an authoritative read of one job, replacing the stored
// entry wholesale and dropping its hint.
func (v *JobsView) ApplyJob(job domain.Job) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.hints, job.ID)

	bookID := job.BookID
	if bookID == "" {
		bookID = v.bookOf(job.ID)
	}
	if bookID == "" {
		return
	}
	job.BookID = bookID

	jobs := v.books[bookID]
	for i := range jobs {
		if jobs[i].ID == job.ID {
			next := copyJobs(jobs)
			next[i] = job
			v.books[bookID] = next
			return
		}
	}
	v.books[bookID] = append(copyJobs(jobs), job)
}

// Replace stores an authoritative job list for bookID and drops the hints of
// every job in it.
func (v *JobsView) Replace(bookID string, jobs []domain.Job) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, j := range v.books[bookID] {
		delete(v.hints, j.ID)
	}
	for _, j := range jobs {
		delete(v.hints, j.ID)
	}
	v.books[bookID] = copyJobs(jobs)
}

// Load stores a cached job list for bookID. Hints are kept, since a cached
// list is not a fresh read.
func (v *JobsView) Load(bookID string, jobs []domain.Job) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.books[bookID] = copyJobs(jobs)
}

// Jobs returns the jobs of bookID with optimistic hints applied.
func (v *JobsView) Jobs(bookID string) []domain.Job {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := copyJobs(v.books[bookID])
	for i := range out {
		if hint, ok := v.hints[out[i].ID]; ok {
			out[i].Status = hint
		}
	}
	return out
}

// Job returns one job with its hint applied.
func (v *JobsView) Job(jobID string) (domain.Job, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, jobs := range v.books {
		for _, j := range jobs {
			if j.ID == jobID {
				if hint, ok := v.hints[jobID]; ok {
					j.Status = hint
				}
				return j, true
			}
		}
	}
	return domain.Job{}, false
}

// Hinted reports whether jobID currently shows an optimistic status.
func (v *JobsView) Hinted(jobID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.hints[jobID]
	return ok
}

func (v *JobsView) bookOf(jobID string) string {
	for bookID, jobs := range v.books {
		for _, j := range jobs {
			if j.ID == jobID {
				return bookID
			}
		}
	}
	return ""
}
