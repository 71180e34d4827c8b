// Package config loads and validates application settings from defaults,
// an optional config file, and BOOKWITH_-prefixed environment variables.
package config
