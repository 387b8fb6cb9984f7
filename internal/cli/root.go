// Package cli provides the command-line interface for webmconv.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/webmconv/internal/client"
	"github.com/raphaelgruber/webmconv/internal/config"
	"github.com/raphaelgruber/webmconv/internal/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	// Global config, logger and API client
	cfg        config.Config
	logger     = slog.Default()
	logCleanup func() error
	apiClient  *client.Client
	stats      *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "webmconv",
	Short: "Convert WebM videos to MP4 on a conversion server",
	Long: `Webmconv uploads WebM videos to a conversion server, follows the
conversion queue live and downloads the finished MP4 files.

The server address comes from --server, the config file or
WEBMCONV_SERVER_URL, and defaults to http://localhost:2424.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level, usesTUI(cmd))

		url := cfg.ServerURL
		if serverURL != "" {
			url = serverURL
		}
		stats = metrics.NewCollector()
		apiClient = client.New(url,
			client.WithTimeout(cfg.ClientTimeout),
			client.WithMetrics(stats),
			client.WithLogger(logger),
		)
		logger.Debug("configured", "server", apiClient.BaseURL(), "config", config.Path())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && stats != nil {
			printSessionStats(cmd.ErrOrStderr(), stats.Snapshot())
		}
	},
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if logCleanup != nil {
		if cerr := logCleanup(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", cerr)
		}
		logCleanup = nil
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and session statistics")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "conversion server URL")
}

// usesTUI reports whether cmd takes over the terminal.
func usesTUI(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "watch":
	case "upload":
		if !uploadFollow {
			return false
		}
	default:
		return false
	}
	return isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
