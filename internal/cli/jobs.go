package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/raphaelgruber/webmconv/internal/client"
	"github.com/raphaelgruber/webmconv/internal/jobstore"
	"github.com/raphaelgruber/webmconv/internal/render"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect conversion jobs",
	Long: `List all conversion jobs or inspect a specific job by ID.

Jobs are listed in queue order: queued and processing first, finished last.

Examples:
  webmconv jobs           # List all jobs
  webmconv jobs abc123    # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// If job ID provided, show that specific job
	if len(args) == 1 {
		return showJob(ctx, out, args[0])
	}

	// List all jobs
	return listJobs(ctx, out)
}

func listJobs(ctx context.Context, out io.Writer) error {
	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	store := jobstore.New()
	agg := store.IngestSnapshot(jobs).Aggregates
	if agg.Empty() {
		fmt.Fprintln(out, jobstore.EmptyText)
		return nil
	}

	fmt.Fprintf(out, "%-10s %-12s %-32s %-10s %-10s %s\n", "ID", "STATUS", "FILE", "SIZE", "PROGRESS", "OUTPUT")
	fmt.Fprintln(out, "----------------------------------------------------------------------------------------------")

	for _, v := range store.Views() {
		progress := v.Queue
		switch {
		case v.Progress != nil:
			progress = fmt.Sprintf("%d%% %s", v.Progress.Percent, v.Progress.Elapsed)
		case v.Download != nil:
			progress = v.Download.Duration
		}
		fmt.Fprintf(out, "%-10s %-12s %-32s %-10s %-10s %s\n",
			shortID(v.ID), v.StatusLabel, render.TruncateFilename(v.Filename, 32), v.Size, progress, v.OutputShort)
	}

	fmt.Fprintf(out, "\n%s, %s\n", agg.QueueLabel(), agg.ProcessingLabel())
	if agg.DownloadAllVisible() {
		fmt.Fprintf(out, "%s: webmconv download-all\n", agg.DownloadAllLabel())
	}
	return nil
}

func showJob(ctx context.Context, out io.Writer, id string) error {
	job, err := apiClient.GetJob(ctx, id)
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("job not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	v := render.Job(*job, time.Now())

	fmt.Fprintf(out, "Job: %s\n", v.ID)
	fmt.Fprintf(out, "  File: %s (%s)\n", v.Filename, v.Size)
	fmt.Fprintf(out, "  Status: %s\n", v.StatusLabel)
	if v.Queue != "" {
		fmt.Fprintf(out, "  %s\n", v.Queue)
	}
	if v.Progress != nil {
		fmt.Fprintf(out, "  Progress: %d%%\n", v.Progress.Percent)
		fmt.Fprintf(out, "  Elapsed: %s\n", v.Progress.Elapsed)
	}
	if v.OutputName != "" {
		fmt.Fprintf(out, "  Output: %s\n", v.OutputName)
	}
	if started, ok := job.Started(); ok {
		fmt.Fprintf(out, "  Started: %s\n", started.Format(time.RFC3339))
	}
	if completed, ok := job.Completed(); ok {
		fmt.Fprintf(out, "  Completed: %s\n", completed.Format(time.RFC3339))
	}
	if v.Download != nil {
		if v.Download.Duration != "" {
			fmt.Fprintf(out, "  Duration: %s\n", v.Download.Duration)
		}
		fmt.Fprintf(out, "  Download: %s\n", apiClient.DownloadURL(v.ID))
	}
	if v.Error != "" {
		fmt.Fprintf(out, "  Error: %s\n", v.Error)
	}

	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
