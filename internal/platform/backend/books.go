package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/bookwith/reader-core/internal/domain"
)

// ListBooks returns every book owned by the configured user.
func (c *Client) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var books []domain.Book
	if _, err := c.doJSON(ctx, http.MethodGet, "/books/user/"+url.PathEscape(c.userID), nil, &books); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// CreateBook registers a new book with its file and metadata.
func (c *Client) CreateBook(ctx context.Context, req domain.CreateBookRequest) (domain.Book, error) {
	payload := struct {
		UserID string `json:"user_id"`
		domain.CreateBookRequest
	}{UserID: c.userID, CreateBookRequest: req}

	var resp struct {
		BookDetail *domain.Book `json:"book_detail"`
		domain.Book
	}
	ok, err := c.doJSON(ctx, http.MethodPost, "/books", payload, &resp)
	if err != nil {
		return domain.Book{}, fmt.Errorf("failed to create book: %w", err)
	}
	if !ok {
		return domain.Book{}, fmt.Errorf("failed to create book: %w", ErrNoData)
	}
	if resp.BookDetail != nil {
		return *resp.BookDetail, nil
	}
	return resp.Book, nil
}

// IndexBook uploads the book file for content indexing.
func (c *Client) IndexBook(ctx context.Context, bookID, fileName string, data []byte) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("user_id", c.userID); err != nil {
		return fmt.Errorf("failed to build index request: %w", err)
	}
	if err := form.WriteField("book_id", bookID); err != nil {
		return fmt.Errorf("failed to build index request: %w", err)
	}
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("failed to build index request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to build index request: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("failed to build index request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/rag", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	if _, err := c.send(req, nil); err != nil {
		return fmt.Errorf("failed to index book: %w", err)
	}
	return nil
}
