package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/bookwith/reader-core/internal/api"
	"github.com/bookwith/reader-core/internal/config"
	"github.com/bookwith/reader-core/internal/epub"
	"github.com/bookwith/reader-core/internal/events"
	"github.com/bookwith/reader-core/internal/importer"
	"github.com/bookwith/reader-core/internal/platform/backend"
	"github.com/bookwith/reader-core/internal/podcast"
	"github.com/bookwith/reader-core/internal/registry"
	"github.com/bookwith/reader-core/internal/stream"
)

// application holds the wired dependencies shared by every command.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	registry *registry.Registry
	emitter  *events.InMemoryEmitter
	backend  *backend.Client
	importer *importer.Coordinator
	podcasts *podcast.Poller
	chats    *stream.Session
	out      io.Writer
	progress *progressRenderer

	stopRendering func()
}

func newApplication(cfg *config.Config, logger *slog.Logger, out, progressOut io.Writer) (*application, error) {
	emitter := events.NewInMemoryEmitter(logger)
	reg := registry.New(logger, registry.WithEmitter(emitter))

	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}

	pipeline := importer.NewPipeline(client, client, epub.Parser{},
		importer.CoverProcessor{MaxWidth: cfg.Import.CoverMaxWidth}, logger)

	poller := podcast.NewPoller(client, podcast.NewJobCache(cfg.Podcast.CachedBooksMax),
		podcast.NewJobsView(), reg, cfg.Podcast, logger)

	checker := stream.NewExistenceChecker(client, cfg.Stream, logger)

	renderer := newProgressRenderer(reg, progressOut)
	stopRendering := emitter.Subscribe(renderer)

	return &application{
		config:   cfg,
		logger:   logger,
		registry: reg,
		emitter:  emitter,
		backend:  client,
		importer: importer.NewCoordinator(pipeline, reg, cfg.Import, logger),
		podcasts: poller,
		chats:    stream.NewSession(client, checker, reg, logger),
		out:      out,
		progress: renderer,

		stopRendering: stopRendering,
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runWithStatus runs op, serving the status API alongside it when serve is
// set. The server stops once op returns.
func (app *application) runWithStatus(ctx context.Context, serve bool, op func(ctx context.Context) error) error {
	if !serve {
		return op(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)

	srv := api.NewServer(app.config.Status, api.NewRouter(app.registry, app.logger), app.logger)
	g.Go(func() error {
		return srv.Run(serverCtx, nil)
	})
	g.Go(func() error {
		defer stopServer()
		return op(gctx)
	})
	return g.Wait()
}

// cleanup stops background work started by commands.
func (app *application) cleanup() {
	app.podcasts.Close()
	app.stopRendering()
	app.progress.Close()
}
