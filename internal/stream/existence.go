package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bookwith/reader-core/internal/config"
	"github.com/bookwith/reader-core/internal/domain"
	"github.com/sethvargo/go-retry"
)

// Defaults for the existence retry.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 300 * time.Millisecond
)

// ChatFetcher reads chat metadata. A chat that is not visible yet must
// yield an error matching domain.ErrNotFound.
type ChatFetcher interface {
	GetChat(ctx context.Context, chatID string) (domain.Chat, error)
}

// ExistenceChecker resolves a chat that may have been created moments ago.
// "Not found" is retried with exponential backoff up to a fixed number of
// attempts; any other error ends the check at once. Giving up is silent.
// The checker only holds the schedule and may be shared; each check runs as
// its own Lookup.
type ExistenceChecker struct {
	fetcher     ChatFetcher
	maxAttempts uint64
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewExistenceChecker creates a checker using the configured schedule.
func NewExistenceChecker(fetcher ChatFetcher, cfg config.StreamConfig, logger *slog.Logger) *ExistenceChecker {
	attempts := cfg.ExistenceMaxAttempts
	if attempts == 0 {
		attempts = DefaultMaxAttempts
	}
	base := cfg.ExistenceBaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	return &ExistenceChecker{
		fetcher:     fetcher,
		maxAttempts: attempts,
		baseDelay:   base,
		logger:      logger.With("component", "chat_existence_checker"),
	}
}

// NewLookup prepares one check. Cancelling it affects no other lookup.
func (c *ExistenceChecker) NewLookup() *Lookup {
	return &Lookup{checker: c}
}

// Resolve runs a fresh lookup for chatID. See Lookup.Resolve.
func (c *ExistenceChecker) Resolve(ctx context.Context, chatID string, apply func(domain.Chat)) bool {
	return c.NewLookup().Resolve(ctx, chatID, apply)
}

// Lookup is a single existence check.
type Lookup struct {
	checker   *ExistenceChecker
	cancelled atomic.Bool

	mu     sync.Mutex
	delays []time.Duration
}

// Cancel suppresses any later apply call, and stops the retry loop at its
// next attempt.
func (l *Lookup) Cancel() {
	l.cancelled.Store(true)
}

// Delays returns the backoff delays handed out so far.
func (l *Lookup) Delays() []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Duration, len(l.delays))
	copy(out, l.delays)
	return out
}

// Resolve fetches chatID and passes it to apply. It reports whether the
// chat was found and applied.
func (l *Lookup) Resolve(ctx context.Context, chatID string, apply func(domain.Chat)) bool {
	c := l.checker
	logger := c.logger.With("chat_id", chatID)

	var chat domain.Chat
	attempt := 0
	err := retry.Do(ctx, l.backoff(), func(ctx context.Context) error {
		if l.cancelled.Load() {
			return context.Canceled
		}
		attempt++

		found, err := c.fetcher.GetChat(ctx, chatID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("chat not visible yet", "attempt", attempt)
				return retry.RetryableError(err)
			}
			return err
		}
		chat = found
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("chat still not visible, giving up", "attempts", attempt)
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Debug("chat check cancelled", "attempts", attempt)
		return false
	default:
		logger.Warn("chat check failed", "error", err, "attempts", attempt)
		return false
	}

	if l.cancelled.Load() || ctx.Err() != nil {
		return false
	}
	if apply != nil {
		apply(chat)
	}
	return true
}

// backoff yields baseDelay * 2^n between attempts and stops after
// maxAttempts-1 retries, recording each delay it hands out.
func (l *Lookup) backoff() retry.Backoff {
	next := retry.WithMaxRetries(l.checker.maxAttempts-1, retry.NewExponential(l.checker.baseDelay))
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		l.mu.Lock()
		l.delays = append(l.delays, d)
		l.mu.Unlock()
		return d, false
	})
}
