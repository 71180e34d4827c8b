package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bookwith/reader-core/internal/domain"
	"github.com/bookwith/reader-core/internal/registry"
	"golang.org/x/sync/errgroup"
)

// Completer opens the streaming completion endpoint for one message.
type Completer interface {
	OpenStream(ctx context.Context, msg domain.MessageRequest) (io.ReadCloser, error)
}

// Reply is the outcome of one streamed message.
type Reply struct {
	Text string
	// Chat is set when the chat metadata could be resolved.
	Chat *domain.Chat
}

// ChatFunc receives chat metadata resolved during a send.
type ChatFunc func(domain.Chat)

// Session sends chat messages and consumes their streamed replies.
type Session struct {
	completer Completer
	checker   *ExistenceChecker
	registry  *registry.Registry
	logger    *slog.Logger

	mu     sync.Mutex
	onChat ChatFunc
}

// NewSession creates a session. checker may be nil to skip resolving chat
// metadata.
func NewSession(completer Completer, checker *ExistenceChecker, reg *registry.Registry, logger *slog.Logger) *Session {
	return &Session{
		completer: completer,
		checker:   checker,
		registry:  reg,
		logger:    logger.With("component", "chat_session"),
	}
}

// OnChat registers fn to observe chat metadata as soon as it resolves.
func (s *Session) OnChat(fn ChatFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChat = fn
}

// Send posts req and streams the reply into onAppend. The chat metadata is
// resolved concurrently and is only attached if it resolved before the
// stream ended; the lookup is abandoned at that point. Failing to resolve
// it never fails the send.
func (s *Session) Send(ctx context.Context, req domain.MessageRequest, onAppend AppendFunc) (Reply, error) {
	taskID := registry.NewID("chat")
	s.registry.Add(registry.Task{
		ID:      taskID,
		Message: "Waiting for reply",
		Kind:    registry.KindLocal,
	})
	defer s.registry.Remove(taskID)

	logger := s.logger.With("chat_id", req.ChatID, "task_id", taskID)

	body, err := s.completer.OpenStream(ctx, req)
	if err != nil {
		logger.Error("failed to open reply stream", "error", err)
		return Reply{}, err
	}
	defer body.Close()

	var (
		mu   sync.Mutex
		chat *domain.Chat
	)

	lookupCtx, stopLookup := context.WithCancel(ctx)
	defer stopLookup()
	g, gctx := errgroup.WithContext(lookupCtx)

	var lookup *Lookup
	if s.checker != nil && req.ChatID != "" {
		s.mu.Lock()
		onChat := s.onChat
		s.mu.Unlock()

		lookup = s.checker.NewLookup()
		g.Go(func() error {
			lookup.Resolve(gctx, req.ChatID, func(found domain.Chat) {
				mu.Lock()
				chat = &found
				mu.Unlock()
				if onChat != nil {
					onChat(found)
				}
			})
			return nil
		})
	}

	first := true
	text, err := Consume(ctx, body, func(cumulative string) {
		if first {
			first = false
			s.registry.Update(taskID, registry.WithMessage("Receiving reply"))
		}
		if onAppend != nil {
			onAppend(cumulative)
		}
	})

	if lookup != nil {
		lookup.Cancel()
	}
	stopLookup()
	_ = g.Wait()

	mu.Lock()
	reply := Reply{Text: text, Chat: chat}
	mu.Unlock()

	if err != nil {
		err = fmt.Errorf("failed to read reply: %w", err)
		logger.Error("reply stream failed", "error", err)
		return reply, err
	}

	logger.Debug("reply complete", "length", len(reply.Text), "chat_resolved", reply.Chat != nil)
	return reply, nil
}
