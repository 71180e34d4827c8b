package podcast

import (
	"sync"

	"github.com/bookwith/reader-core/internal/domain"
	"github.com/golang/groupcache/lru"
)

// JobCache holds the most recently listed job collections, keyed by book.
// It is safe for concurrent use.
type JobCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewJobCache creates a cache holding at most maxBooks job lists.
func NewJobCache(maxBooks int) *JobCache {
	if maxBooks <= 0 {
		maxBooks = 1
	}
	return &JobCache{cache: lru.New(maxBooks)}
}

// Get returns a copy of the cached jobs for bookID.
func (c *JobCache) Get(bookID string) ([]domain.Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(bookID)
	if !ok {
		return nil, false
	}
	return copyJobs(v.([]domain.Job)), true
}

// Put stores jobs for bookID.
func (c *JobCache) Put(bookID string, jobs []domain.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(bookID, copyJobs(jobs))
}

// Invalidate drops the cached list for bookID so the next read refetches.
func (c *JobCache) Invalidate(bookID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(bookID)
}

// Len returns the number of cached books.
func (c *JobCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

func copyJobs(jobs []domain.Job) []domain.Job {
	if jobs == nil {
		return nil
	}
	out := make([]domain.Job, len(jobs))
	copy(out, jobs)
	return out
}
