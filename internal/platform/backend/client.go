package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bookwith/reader-core/internal/config"
	"github.com/hashicorp/go-cleanhttp"
)

// Client talks to the backend API on behalf of one user.
type Client struct {
	baseURL *url.URL
	userID  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client using a pooled, non-shared transport.
func NewClient(cfg config.BackendConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL: base,
		userID:  cfg.UserID,
		http:    httpClient,
		logger:  logger.With("component", "backend_client"),
	}, nil
}

// envelope is the wrapped response shape.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// newRequest builds a request with the identity parameter attached.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	q := u.Query()
	q.Set("user_id", c.userID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends in (if non-nil) as JSON and decodes the response into out.
// It reports whether the response carried any data.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) (bool, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return false, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return false, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// send executes req and decodes the response.
func (c *Client) send(req *http.Request, out interface{}) (bool, error) {
	logger := c.logger.With("method", req.Method, "path", req.URL.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("backend request failed", "error", err)
		return false, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		logger.Debug("backend rejected request", "status_code", resp.StatusCode, "error", apiErr.Message)
		return false, apiErr
	}

	return decodeBody(resp.StatusCode, raw, out)
}

// decodeBody applies the envelope / bare-body / no-data rules.
func decodeBody(status int, raw []byte, out interface{}) (bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if status == http.StatusNoContent || len(trimmed) == 0 {
		return false, nil
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Success != nil {
			if !*env.Success {
				return false, &APIError{StatusCode: status, Message: env.Error}
			}
			if len(env.Data) == 0 || string(env.Data) == "null" {
				return false, nil
			}
			trimmed = env.Data
		}
	}

	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

// errorMessage extracts a human-readable message from an error body.
func errorMessage(raw []byte) string {
	var body struct {
		Detail interface{} `json:"detail"`
		Error  string      `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if s, ok := body.Detail.(string); ok {
			return s
		}
	}
	return strings.TrimSpace(string(raw))
}
