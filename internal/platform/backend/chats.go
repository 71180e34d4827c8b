package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bookwith/reader-core/internal/domain"
)

// GetChat fetches chat metadata. A chat that is not (yet) visible yields an
// error matching domain.ErrNotFound.
func (c *Client) GetChat(ctx context.Context, chatID string) (domain.Chat, error) {
	var chat domain.Chat
	ok, err := c.doJSON(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID), nil, &chat)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("failed to get chat: %w", err)
	}
	if !ok {
		return domain.Chat{}, fmt.Errorf("failed to get chat: %w", domain.ErrNotFound)
	}
	return chat, nil
}

// OpenStream posts a message and returns the streamed reply body. The
// caller must close it.
func (c *Client) OpenStream(ctx context.Context, msg domain.MessageRequest) (io.ReadCloser, error) {
	if msg.SenderID == "" {
		msg.SenderID = c.userID
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open message stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	return resp.Body, nil
}

// streamClient shares the transport but drops the overall timeout, which
// would otherwise cut long replies short.
func (c *Client) streamClient() *http.Client {
	clone := *c.http
	clone.Timeout = 0
	return &clone
}
