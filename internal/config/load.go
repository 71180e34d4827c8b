package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultUserID is the stand-in identity attached to every backend request
// until real authentication exists.
const DefaultUserID = "91527c9d-48aa-41d0-bb85-dc96f26556a0"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.bookwith")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BOOKWITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.user_id", DefaultUserID)
	v.SetDefault("backend.timeout", 30*time.Second)

	v.SetDefault("import.worker_threshold", 3)
	v.SetDefault("import.cover_max_width", 600)

	v.SetDefault("podcast.poll_interval", 5*time.Second)
	v.SetDefault("podcast.cached_books_max", 32)

	v.SetDefault("stream.existence_max_attempts", 5)
	v.SetDefault("stream.existence_base_delay", 300*time.Millisecond)

	v.SetDefault("status.port", 8765)
}
