package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bookwith/reader-core/internal/domain"
	"github.com/bookwith/reader-core/internal/progress"
)

// Library lists and registers books.
type Library interface {
	ListBooks(ctx context.Context) ([]domain.Book, error)
	CreateBook(ctx context.Context, req domain.CreateBookRequest) (domain.Book, error)
}

// Indexer uploads a book's content for search. Failures are best-effort.
type Indexer interface {
	IndexBook(ctx context.Context, bookID, fileName string, data []byte) error
}

// Parser extracts title, author and cover from a book file.
type Parser interface {
	Parse(name string, data []byte) (domain.BookMetadata, error)
}

// EmitFunc receives every message a run produces, in order.
type EmitFunc func(Message)

// errDuplicate marks a file whose book already exists; it is neither a
// success nor a failure.
var errDuplicate = errors.New("book already exists")

// Pipeline executes one import run. It is stateless between runs and may be
// shared by the inline path and a Worker.
type Pipeline struct {
	library Library
	indexer Indexer
	parser  Parser
	covers  CoverProcessor
	logger  *slog.Logger
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(library Library, indexer Indexer, parser Parser, covers CoverProcessor, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		library: library,
		indexer: indexer,
		parser:  parser,
		covers:  covers,
		logger:  logger.With("component", "import_pipeline"),
	}
}

// run carries the counters of one Run call.
type run struct {
	id      string
	total   int
	emit    EmitFunc
	success int
	failed  int
	added   []domain.Book
	logger  *slog.Logger
}

func (r *run) send(t MessageType, payload interface{}) {
	msg, err := NewMessage(t, r.id, payload)
	if err != nil {
		r.logger.Error("failed to build message", "error", err, "type", t)
		return
	}
	r.emit(msg)
}

func (r *run) complete() {
	r.send(MsgComplete, CompletePayload{
		Total:   r.total,
		Success: r.success,
		Failed:  r.failed,
		Added:   r.added,
	})
}

// Run imports files in input order, one file at a time. It always ends with
// a complete message; a crash of the run itself is reported as fatalError
// first.
func (p *Pipeline) Run(ctx context.Context, runID string, files []File, emit EmitFunc) {
	r := &run{
		id:     runID,
		total:  len(files),
		emit:   emit,
		logger: p.logger.With("run_id", runID),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("import run crashed", "panic", rec)
			r.send(MsgFatalError, FatalPayload{Message: fmt.Sprint(rec)})
			r.complete()
		}
	}()

	r.send(MsgStart, StartPayload{Total: r.total})

	existing, err := p.library.ListBooks(ctx)
	if err != nil {
		r.logger.Error("failed to load library snapshot", "error", err)
		r.send(MsgFatalError, FatalPayload{Message: err.Error()})
		r.complete()
		return
	}
	known := make(map[string]domain.Book, len(existing)+len(files))
	for _, b := range existing {
		known[b.DisplayName()] = b
	}

	for i, f := range files {
		if ctx.Err() != nil {
			r.logger.Info("import run cancelled", "completed", i, "total", r.total)
			break
		}

		name := displayName(f.Name)
		fileProgress := func(pct int) {
			r.send(MsgFileProgress, FileProgressPayload{Name: name, Progress: pct, Index: i})
		}

		book, err := p.importFile(ctx, f, name, known, fileProgress, r.logger)
		switch {
		case errors.Is(err, errDuplicate):
			r.logger.Debug("skipping existing book", "name", name)
		case err != nil:
			r.failed++
			r.logger.Warn("failed to import file", "name", name, "error", err)
			r.send(MsgError, ErrorPayload{Name: name, Message: err.Error()})
		case book != nil:
			r.success++
			known[name] = *book
			r.added = append(r.added, *book)
		}

		fileProgress(progress.CheckpointDone)
		r.send(MsgUpdateOverall, OverallPayload{Completed: i + 1, Success: r.success, Failed: r.failed})
	}

	r.complete()
}

// importFile runs one file through the pipeline. A nil book with a nil
// error means the file was accepted without creating anything.
func (p *Pipeline) importFile(
	ctx context.Context,
	f File,
	name string,
	known map[string]domain.Book,
	fileProgress func(int),
	logger *slog.Logger,
) (*domain.Book, error) {
	switch Classify(f) {
	case KindArchive:
		return nil, nil
	case KindUnsupported:
		return nil, ErrUnsupportedType
	}

	if _, exists := known[name]; exists {
		return nil, errDuplicate
	}

	fileProgress(progress.CheckpointParseStarted)
	meta, err := p.parser.Parse(f.Name, f.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	var cover []byte
	if len(meta.Cover) > 0 {
		cover, err = p.covers.Process(meta.Cover)
		if err != nil {
			logger.Warn("dropping unreadable cover", "name", name, "error", err)
			cover = nil
		}
	}
	fileProgress(progress.CheckpointCoverProcessed)

	req := domain.CreateBookRequest{
		FileName:   f.Name,
		FileData:   f.Data,
		BookName:   name,
		CoverImage: cover,
		Metadata: domain.BookMetaJSON{
			Title:  meta.Title,
			Author: meta.Author,
		},
	}
	fileProgress(progress.CheckpointRequestBuilt)

	book, err := p.library.CreateBook(ctx, req)
	if err != nil {
		return nil, err
	}
	if book.Name == "" {
		book.Name = name
	}
	fileProgress(progress.CheckpointEntityCreated)

	if err := p.indexer.IndexBook(ctx, book.ID, f.Name, f.Data); err != nil {
		logger.Warn("failed to index book", "name", name, "book_id", book.ID, "error", err)
	}
	fileProgress(progress.CheckpointIndexed)

	return &book, nil
}

func displayName(fileName string) string {
	return strings.TrimSpace(fileName)
}
