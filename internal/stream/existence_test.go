package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bookwith/reader-core/internal/config"
	"github.com/bookwith/reader-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher fails with the scripted errors, then returns chat.
type fakeFetcher struct {
	mu     sync.Mutex
	errs   []error
	chat   domain.Chat
	calls  int
	onCall func(call int)
}

func (f *fakeFetcher) GetChat(ctx context.Context, chatID string) (domain.Chat, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	hook := f.onCall
	var err error
	if call <= len(f.errs) {
		err = f.errs[call-1]
	}
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return domain.Chat{}, err
	}
	chat := f.chat
	chat.ID = chatID
	return chat, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func notFound(n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = domain.ErrNotFound
	}
	return errs
}

func testChecker(f ChatFetcher) *ExistenceChecker {
	return NewExistenceChecker(f, config.StreamConfig{
		ExistenceMaxAttempts: 5,
		ExistenceBaseDelay:   time.Millisecond,
	}, testLogger())
}

func TestResolveAfterNotFound(t *testing.T) {
	f := &fakeFetcher{errs: notFound(2), chat: domain.Chat{Title: "Chapter one"}}
	l := testChecker(f).NewLookup()

	var applied domain.Chat
	ok := l.Resolve(context.Background(), "chat-1", func(chat domain.Chat) { applied = chat })

	require.True(t, ok)
	assert.Equal(t, "Chapter one", applied.Title)
	assert.Equal(t, 3, f.callCount())
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, l.Delays())
}

func TestResolveGivesUpAfterFiveAttempts(t *testing.T) {
	f := &fakeFetcher{errs: notFound(10)}
	l := testChecker(f).NewLookup()

	applied := false
	ok := l.Resolve(context.Background(), "chat-1", func(domain.Chat) { applied = true })

	assert.False(t, ok)
	assert.False(t, applied)
	assert.Equal(t, 5, f.callCount())
	assert.Equal(t, []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		8 * time.Millisecond,
	}, l.Delays(), "delay doubles between attempts")
}

func TestResolveDefaultSchedule(t *testing.T) {
	c := NewExistenceChecker(&fakeFetcher{}, config.StreamConfig{}, testLogger())
	assert.Equal(t, uint64(DefaultMaxAttempts), c.maxAttempts)
	assert.Equal(t, 300*time.Millisecond, c.baseDelay)
}

func TestResolveStopsOnOtherErrors(t *testing.T) {
	f := &fakeFetcher{errs: []error{domain.ErrNotFound, errors.New("internal server error")}}
	c := testChecker(f)

	ok := c.Resolve(context.Background(), "chat-1", func(domain.Chat) { t.Fatal("must not apply") })
	assert.False(t, ok)
	assert.Equal(t, 2, f.callCount())
}

func TestResolveCancelled(t *testing.T) {
	t.Run("cancel flag suppresses apply", func(t *testing.T) {
		f := &fakeFetcher{}
		l := testChecker(f).NewLookup()
		f.onCall = func(int) { l.Cancel() }

		ok := l.Resolve(context.Background(), "chat-1", func(domain.Chat) { t.Fatal("must not apply") })
		assert.False(t, ok)
	})

	t.Run("cancel flag stops retries", func(t *testing.T) {
		f := &fakeFetcher{errs: notFound(10)}
		l := testChecker(f).NewLookup()
		f.onCall = func(call int) {
			if call == 2 {
				l.Cancel()
			}
		}

		assert.False(t, l.Resolve(context.Background(), "chat-1", nil))
		assert.Equal(t, 2, f.callCount())
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		f := &fakeFetcher{errs: notFound(10), onCall: func(int) { cancel() }}
		c := testChecker(f)

		assert.False(t, c.Resolve(ctx, "chat-1", func(domain.Chat) { t.Fatal("must not apply") }))
		assert.Equal(t, 1, f.callCount())
	})
}

func TestCancelledLookupDoesNotAffectLaterLookups(t *testing.T) {
	f := &fakeFetcher{chat: domain.Chat{Title: "Second"}}
	c := testChecker(f)

	first := c.NewLookup()
	first.Cancel()
	assert.False(t, first.Resolve(context.Background(), "chat-1", func(domain.Chat) { t.Fatal("must not apply") }))
	assert.Equal(t, 0, f.callCount())

	var applied domain.Chat
	ok := c.Resolve(context.Background(), "chat-2", func(chat domain.Chat) { applied = chat })
	require.True(t, ok)
	assert.Equal(t, "chat-2", applied.ID)
	assert.Equal(t, 1, f.callCount())
}

func TestConcurrentLookupsKeepTheirOwnDelays(t *testing.T) {
	c := testChecker(&fakeFetcher{errs: notFound(10)})

	var wg sync.WaitGroup
	lookups := []*Lookup{c.NewLookup(), c.NewLookup()}
	for _, l := range lookups {
		wg.Add(1)
		go func(l *Lookup) {
			defer wg.Done()
			l.Resolve(context.Background(), "chat-1", nil)
		}(l)
	}
	wg.Wait()

	for _, l := range lookups {
		assert.Len(t, l.Delays(), 4)
	}
}
