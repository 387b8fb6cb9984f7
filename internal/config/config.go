package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Conversion server
	ServerURL     string
	ClientTimeout time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Downloads
	DownloadDir string

	// Upload defaults
	Rename     string
	CustomName string

	// Drop folder
	DropDebounce time.Duration
}

// File is the optional YAML config file. Empty fields fall back to defaults.
type File struct {
	Server        string `yaml:"server"`
	ClientTimeout string `yaml:"client_timeout"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
	DownloadDir   string `yaml:"download_dir"`
	Rename        string `yaml:"rename"`
	CustomName    string `yaml:"custom_name"`
	DropDebounce  string `yaml:"drop_debounce"`
}

// Load reads configuration from the config file and environment variables.
// Environment variables win over the file.
func Load() (Config, error) {
	f, err := ReadFile(Path())
	if err != nil {
		return Config{}, err
	}
	return resolve(f)
}

// Path returns the config file location: $WEBMCONV_CONFIG or
// <user config dir>/webmconv/config.yaml.
func Path() string {
	if p := os.Getenv("WEBMCONV_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "webmconv", "config.yaml")
}

// ReadFile parses the YAML config at path. A missing file is not an error.
func ReadFile(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

func resolve(f File) (Config, error) {
	timeout, err := parseDuration("client_timeout", getEnv("WEBMCONV_CLIENT_TIMEOUT", or(f.ClientTimeout, "0s")))
	if err != nil {
		return Config{}, err
	}
	debounce, err := parseDuration("drop_debounce", getEnv("WEBMCONV_DROP_DEBOUNCE", or(f.DropDebounce, "1s")))
	if err != nil {
		return Config{}, err
	}
	level, err := parseLogLevel(getEnv("WEBMCONV_LOG_LEVEL", or(f.LogLevel, "INFO")))
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServerURL:     getEnv("WEBMCONV_SERVER_URL", or(f.Server, "http://localhost:2424")),
		ClientTimeout: timeout,

		LogFile:  getEnv("WEBMCONV_LOG_FILE", or(f.LogFile, filepath.Join(os.TempDir(), "webmconv.log"))),
		LogLevel: level,

		DownloadDir: getEnv("WEBMCONV_DOWNLOAD_DIR", or(f.DownloadDir, ".")),

		Rename:     getEnv("WEBMCONV_RENAME", or(f.Rename, "keep")),
		CustomName: getEnv("WEBMCONV_CUSTOM_NAME", f.CustomName),

		DropDebounce: debounce,
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func or(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, s)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level %q (expected debug, info, warn or error)", s)
	}
}
