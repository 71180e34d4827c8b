// Package main implements bookwith, a command-line front end for the
// reader's task orchestration core: batch imports, podcast generation and
// streamed chat replies, all reporting into one task registry that can be
// watched over a local status API.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/bookwith/reader-core/internal/config"
	"github.com/bookwith/reader-core/internal/platform/logger"
)

// CLI is the root command.
type CLI struct {
	LogLevel string `help:"Override the configured log level." placeholder:"LEVEL"`

	Import  ImportCmd  `cmd:"" help:"Import book files into the library."`
	Podcast PodcastCmd `cmd:"" help:"Create, retry and list podcast jobs."`
	Chat    ChatCmd    `cmd:"" help:"Talk about a book."`
	Serve   ServeCmd   `cmd:"" help:"Serve the task status API until interrupted."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bookwith"),
		kong.Description("Import books, generate podcasts and chat with the bookwith backend."),
		kong.UsageOnError(),
	)

	app, err := initializeApp(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookwith: %v\n", err)
		os.Exit(1)
	}
	defer app.cleanup()

	err = ctx.Run(app)
	ctx.FatalIfErrorf(err)
}

// initializeApp loads .env, configuration and logging, then wires the
// application.
func initializeApp(logLevel string) (*application, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Debug("configuration loaded",
		"backend_url", cfg.Backend.BaseURL,
		"worker_threshold", cfg.Import.WorkerThreshold,
		"poll_interval", cfg.Podcast.PollInterval,
		"status_port", cfg.Status.Port)

	return newApplication(cfg, log, os.Stdout, os.Stderr)
}
