package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bookwith/reader-core/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLibrary is an in-memory Library.
type fakeLibrary struct {
	mu          sync.Mutex
	books       []domain.Book
	created     []domain.CreateBookRequest
	listErr     error
	createErr   map[string]error
	listCalls   int
	createCalls int
	nextID      int
}

func (l *fakeLibrary) ListBooks(ctx context.Context) ([]domain.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listCalls++
	if l.listErr != nil {
		return nil, l.listErr
	}
	out := make([]domain.Book, len(l.books))
	copy(out, l.books)
	return out, nil
}

func (l *fakeLibrary) CreateBook(ctx context.Context, req domain.CreateBookRequest) (domain.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createCalls++
	if err := l.createErr[req.BookName]; err != nil {
		return domain.Book{}, err
	}
	l.nextID++
	book := domain.Book{
		ID:            fmt.Sprintf("book-%d", l.nextID),
		Name:          req.BookName,
		MetadataTitle: req.Metadata.Title,
		Author:        req.Metadata.Author,
	}
	l.created = append(l.created, req)
	l.books = append(l.books, book)
	return book, nil
}

// fakeIndexer records index calls.
type fakeIndexer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (i *fakeIndexer) IndexBook(ctx context.Context, bookID, fileName string, data []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, bookID)
	return i.err
}

// fakeParser returns fixed metadata, or fails / panics for chosen names.
type fakeParser struct {
	fail  map[string]bool
	panic map[string]bool
	cover []byte
}

func (p *fakeParser) Parse(name string, data []byte) (domain.BookMetadata, error) {
	if p.panic[name] {
		panic("parser exploded")
	}
	if p.fail[name] {
		return domain.BookMetadata{}, errors.New("corrupt epub")
	}
	return domain.BookMetadata{Title: "Title of " + name, Author: "Author", Cover: p.cover}, nil
}

func epubFile(name string) File {
	return File{Name: name, MIMEType: "application/epub+zip", Data: []byte("epub:" + name)}
}

// collect gathers emitted messages.
type collect struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collect) emit(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collect) ofType(t MessageType) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Message
	for _, m := range c.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (c *collect) types() []MessageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MessageType, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.Type)
	}
	return out
}
