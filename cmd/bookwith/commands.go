package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/bookwith/reader-core/internal/domain"
	"github.com/bookwith/reader-core/internal/importer"
	"github.com/bookwith/reader-core/internal/redact"
)

func init() {
	_ = mime.AddExtensionType(".epub", "application/epub+zip")
	_ = mime.AddExtensionType(".cbz", "application/vnd.comicbook+zip")
}

// ImportCmd imports one or more book files.
type ImportCmd struct {
	Files []string `arg:"" name:"files" help:"Book files to import." type:"existingfile"`
	Serve bool     `help:"Serve the task status API while importing."`
}

// Run executes the import.
func (c *ImportCmd) Run(app *application) error {
	files, err := loadFiles(c.Files)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var result importer.Result
	err = app.runWithStatus(ctx, c.Serve, func(ctx context.Context) error {
		var runErr error
		result, runErr = app.importer.Import(ctx, files)
		return runErr
	})
	printImportSummary(app.out, len(files), result)
	return err
}

// loadFiles reads paths into import files. The MIME type is declared from
// the extension; unknown extensions are left for content sniffing.
func loadFiles(paths []string) ([]importer.File, error) {
	files := make([]importer.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, importer.File{
			Name:     filepath.Base(path),
			MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			Data:     data,
		})
	}
	return files, nil
}

func printImportSummary(w io.Writer, total int, result importer.Result) {
	fmt.Fprintf(w, "Imported %d of %d files (%d failed)\n", result.Succeeded, total, result.Failed)
	for _, b := range result.Added {
		fmt.Fprintf(w, "  + %s (%s)\n", b.DisplayName(), b.ID)
	}
	for _, fe := range result.Errors {
		fmt.Fprintf(w, "  ! %s: %s\n", fe.Name, redact.String(fe.Message))
	}
}

// PodcastCmd groups the podcast subcommands.
type PodcastCmd struct {
	Create PodcastCreateCmd `cmd:"" help:"Start generating a podcast for a book."`
	Retry  PodcastRetryCmd  `cmd:"" help:"Retry a failed podcast job."`
	List   PodcastListCmd   `cmd:"" help:"List the podcast jobs of a book."`
}

// PodcastCreateCmd creates a podcast job.
type PodcastCreateCmd struct {
	BookID string `arg:"" name:"book-id" help:"Book to generate the podcast for."`
	Title  string `help:"Podcast title."`
	Wait   bool   `help:"Follow the job until it completes or fails."`
	Serve  bool   `help:"Serve the task status API while waiting."`
}

// Run executes the create.
func (c *PodcastCreateCmd) Run(app *application) error {
	ctx, stop := signalContext()
	defer stop()

	return app.runWithStatus(ctx, c.Serve, func(ctx context.Context) error {
		job, err := app.podcasts.Create(ctx, c.BookID, c.Title)
		if err != nil {
			return err
		}
		printJob(app.out, job)
		if !c.Wait {
			return nil
		}
		return app.waitForJob(job)
	})
}

// PodcastRetryCmd retries a failed job.
type PodcastRetryCmd struct {
	JobID  string `arg:"" name:"job-id" help:"Failed job to retry."`
	BookID string `help:"Book the job belongs to, used to check its current status."`
	Wait   bool   `help:"Follow the job until it completes or fails."`
	Serve  bool   `help:"Serve the task status API while waiting."`
}

// Run executes the retry.
func (c *PodcastRetryCmd) Run(app *application) error {
	ctx, stop := signalContext()
	defer stop()

	return app.runWithStatus(ctx, c.Serve, func(ctx context.Context) error {
		if c.BookID != "" {
			if _, err := app.podcasts.ListJobs(ctx, c.BookID); err != nil {
				return fmt.Errorf("failed to load jobs of book %s: %w", c.BookID, err)
			}
		}
		job, err := app.podcasts.Retry(ctx, c.JobID)
		if err != nil {
			return err
		}
		printJob(app.out, job)
		if !c.Wait {
			return nil
		}
		return app.waitForJob(job)
	})
}

// PodcastListCmd lists the jobs of a book.
type PodcastListCmd struct {
	BookID string `arg:"" name:"book-id" help:"Book whose jobs to list."`
}

// Run executes the list.
func (c *PodcastListCmd) Run(app *application) error {
	ctx, stop := signalContext()
	defer stop()

	jobs, err := app.podcasts.ListJobs(ctx, c.BookID)
	if err != nil {
		return err
	}
	printJobs(app.out, jobs)
	return nil
}

// waitForJob blocks until the loop following job exits.
func (app *application) waitForJob(job domain.Job) error {
	h, ok := app.podcasts.Handle(job.ID)
	if !ok {
		return nil
	}
	last, err := h.Wait()
	if err != nil {
		return fmt.Errorf("stopped following job %s: %w", job.ID, err)
	}
	printJob(app.out, last)
	if last.Status == domain.JobStatusFailed {
		return fmt.Errorf("podcast %s failed: %s", last.ID, redact.String(last.ErrorMessage))
	}
	return nil
}

func printJob(w io.Writer, job domain.Job) {
	fmt.Fprintf(w, "%s\t%s\t%s\n", job.ID, job.Status, job.Title)
	if job.AudioURL != "" {
		fmt.Fprintf(w, "  audio: %s\n", job.AudioURL)
	}
}

func printJobs(w io.Writer, jobs []domain.Job) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", j.ID, j.Status, j.Title)
	}
	_ = tw.Flush()
}

// ChatCmd groups the chat subcommands.
type ChatCmd struct {
	Send ChatSendCmd `cmd:"" help:"Send a message and stream the reply."`
}

// ChatSendCmd sends one message.
type ChatSendCmd struct {
	ChatID  string `required:"" help:"Chat to post to."`
	BookID  string `help:"Book the chat is about."`
	Message string `arg:"" name:"message" help:"Message text."`
}

// Run executes the send.
func (c *ChatSendCmd) Run(app *application) error {
	if strings.TrimSpace(c.Message) == "" {
		return errors.New("message is empty")
	}

	ctx, stop := signalContext()
	defer stop()

	req := domain.MessageRequest{
		Content:  c.Message,
		SenderID: app.config.Backend.UserID,
		ChatID:   c.ChatID,
		BookID:   c.BookID,
	}

	printer := &deltaPrinter{w: app.out}
	reply, err := app.chats.Send(ctx, req, printer.append)
	fmt.Fprintln(app.out)
	if err != nil {
		return err
	}
	if reply.Chat != nil && reply.Chat.Title != "" {
		fmt.Fprintf(app.out, "(%s)\n", reply.Chat.Title)
	}
	return nil
}

// deltaPrinter writes only the part of a cumulative text not yet printed.
type deltaPrinter struct {
	w       io.Writer
	printed int
}

func (p *deltaPrinter) append(cumulative string) {
	if len(cumulative) <= p.printed {
		return
	}
	fmt.Fprint(p.w, cumulative[p.printed:])
	p.printed = len(cumulative)
}

// ServeCmd serves the status API until interrupted.
type ServeCmd struct{}

// Run executes the serve.
func (c *ServeCmd) Run(app *application) error {
	ctx, stop := signalContext()
	defer stop()

	return app.runWithStatus(ctx, true, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
}
