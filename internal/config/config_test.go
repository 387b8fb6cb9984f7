package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config file at an empty temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("WEBMCONV_CONFIG", path)
	for _, k := range []string{
		"WEBMCONV_SERVER_URL", "WEBMCONV_CLIENT_TIMEOUT", "WEBMCONV_LOG_FILE",
		"WEBMCONV_LOG_LEVEL", "WEBMCONV_DOWNLOAD_DIR", "WEBMCONV_RENAME",
		"WEBMCONV_CUSTOM_NAME", "WEBMCONV_DROP_DEBOUNCE",
	} {
		t.Setenv(k, "")
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:2424", cfg.ServerURL)
	assert.Equal(t, time.Duration(0), cfg.ClientTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, ".", cfg.DownloadDir)
	assert.Equal(t, "keep", cfg.Rename)
	assert.Equal(t, time.Second, cfg.DropDebounce)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := isolate(t)
	require.NoError(t, os.WriteFile(path, []byte(`
server: http://converter:9000
client_timeout: 30s
log_level: debug
rename: custom
custom_name: holiday
`), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://converter:9000", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.ClientTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "custom", cfg.Rename)
	assert.Equal(t, "holiday", cfg.CustomName)

	t.Setenv("WEBMCONV_SERVER_URL", "https://override")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://override", cfg.ServerURL)
}

func TestLoadRejectsBadInput(t *testing.T) {
	path := isolate(t)

	t.Setenv("WEBMCONV_CLIENT_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "client_timeout")

	t.Setenv("WEBMCONV_CLIENT_TIMEOUT", "-1s")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("WEBMCONV_CLIENT_TIMEOUT", "")
	t.Setenv("WEBMCONV_LOG_LEVEL", "verbose")
	_, err = Load()
	assert.ErrorContains(t, err, "log_level")

	t.Setenv("WEBMCONV_LOG_LEVEL", "")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))
	_, err = Load()
	assert.ErrorContains(t, err, "parse config")
}

func TestReadFileMissingIsEmpty(t *testing.T) {
	f, err := ReadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, File{}, f)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := parseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLogLevel("loud")
	assert.ErrorContains(t, err, `"loud"`)
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("uploaded", "file", "a.webm")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "file=a.webm")
	assert.Contains(t, file.String(), `"file":"a.webm"`)
}

func TestSetupLoggerQuietWritesOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webmconv.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo, true)
	logger.Info("connected", "url", "ws://x/ws")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"connected"`)
}
