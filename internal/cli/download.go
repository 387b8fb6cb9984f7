package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/raphaelgruber/webmconv/internal/client"
	"github.com/raphaelgruber/webmconv/internal/models"
	"github.com/raphaelgruber/webmconv/internal/render"
	"github.com/raphaelgruber/webmconv/internal/transfer"
	"github.com/spf13/cobra"
)

var downloadDir string

var downloadCmd = &cobra.Command{
	Use:   "download <job-id>",
	Short: "Download one converted file",
	Long: `Download the MP4 of a completed job into the output directory.

Examples:
  webmconv download abc123
  webmconv download abc123 -o ~/Videos`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

var downloadAllCmd = &cobra.Command{
	Use:   "download-all",
	Short: "Download every completed file",
	Long: `Download all completed jobs. A single completed job is saved as its MP4;
several are saved as one converted_videos_<timestamp>.zip archive.`,
	Args: cobra.NoArgs,
	RunE: runDownloadAll,
}

func init() {
	for _, c := range []*cobra.Command{downloadCmd, downloadAllCmd} {
		c.Flags().StringVarP(&downloadDir, "output", "o", "", "output directory (default from config)")
		rootCmd.AddCommand(c)
	}
}

func outputDir() string {
	if downloadDir != "" {
		return downloadDir
	}
	return cfg.DownloadDir
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	job, err := apiClient.GetJob(ctx, id)
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("job not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job.Status != models.StatusCompleted {
		return fmt.Errorf("job %s is %s, not completed", id, render.StatusLabel(job.Status))
	}

	res, err := transfer.DownloadJob(ctx, apiClient, *job, outputDir())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", res.Path, render.Size(res.Bytes))
	return nil
}

func runDownloadAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	res, err := transfer.DownloadCompleted(ctx, apiClient, jobs, outputDir(), time.Now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d file(s) to %s (%s)\n", res.Jobs, res.Path, render.Size(res.Bytes))
	return nil
}
