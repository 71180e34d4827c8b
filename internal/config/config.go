package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Backend BackendConfig `mapstructure:"backend" validate:"required"`
	Import  ImportConfig  `mapstructure:"import" validate:"required"`
	Podcast PodcastConfig `mapstructure:"podcast" validate:"required"`
	Stream  StreamConfig  `mapstructure:"stream" validate:"required"`
	Status  StatusConfig  `mapstructure:"status" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// BackendConfig points at the HTTP API that owns books, jobs and chats.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	UserID  string        `mapstructure:"user_id" validate:"required,uuid"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// ImportConfig controls where import work executes.
type ImportConfig struct {
	// WorkerThreshold is the batch size from which the run is delegated to
	// the background worker instead of running inline.
	WorkerThreshold int `mapstructure:"worker_threshold" validate:"gte=1"`
	// CoverMaxWidth bounds the thumbnail generated from a book cover.
	CoverMaxWidth uint `mapstructure:"cover_max_width" validate:"gte=16"`
}

// PodcastConfig controls job polling.
type PodcastConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	CachedBooksMax int           `mapstructure:"cached_books_max" validate:"gte=1"`
}

// StreamConfig controls the chat existence retry.
type StreamConfig struct {
	ExistenceMaxAttempts uint64        `mapstructure:"existence_max_attempts" validate:"gte=1"`
	ExistenceBaseDelay   time.Duration `mapstructure:"existence_base_delay" validate:"gt=0"`
}

// StatusConfig configures the local task status endpoint.
type StatusConfig struct {
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`
}
