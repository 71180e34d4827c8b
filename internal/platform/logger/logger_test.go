package logger

import (
	"log/slog"
	"testing"

	"github.com/bookwith/reader-core/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLevel(tc.in))
		})
	}
}

func TestSetupWritesJSONAtConfiguredLevel(t *testing.T) {
	for _, key := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		t.Setenv(key, "")
	}
	original := slog.Default()
	defer slog.SetDefault(original)

	buf := &TestLogBuffer{}
	l := setup(config.ServerConfig{LogLevel: "warn"}, buf)

	l.Info("hidden")
	l.Warn("visible", "task_id", "import-1")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "visible", entries[0]["msg"])
	assert.Equal(t, "import-1", entries[0]["task_id"])
}

func TestSetupAddsCIMetadata(t *testing.T) {
	t.Setenv("CI", "true")
	t.Setenv("GITHUB_RUN_ID", "42")
	original := slog.Default()
	defer slog.SetDefault(original)

	buf := &TestLogBuffer{}
	l := setup(config.ServerConfig{LogLevel: "info"}, buf)
	l.With("component", "test").Info("hello")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "true", entries[0]["ci"])
	assert.Equal(t, "42", entries[0]["ci_run_id"])
	assert.Equal(t, "test", entries[0]["component"])
}
