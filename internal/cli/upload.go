package cli

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/webmconv/internal/models"
	"github.com/raphaelgruber/webmconv/internal/upload"
	"github.com/spf13/cobra"
)

var (
	uploadRename string
	uploadName   string
	uploadFollow bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <files...>",
	Short: "Upload WebM files for conversion",
	Long: `Upload WebM files to the conversion server.

Non-WebM files are skipped. If any WebM file is larger than 100MB the
whole selection is rejected and nothing is uploaded. Files are uploaded
one at a time; a failed file does not stop the rest.

Rename modes:
  keep     keep the original name
  custom   use --name; several files get _1, _2, ... suffixes
  prefix   let the server add its prefix
  date     let the server add the date

Examples:
  webmconv upload talk.webm
  webmconv upload *.webm --rename custom --name holiday
  webmconv upload clip.webm --follow`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadRename, "rename", "r", "keep", "rename mode (keep, custom, prefix, date)")
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "custom output name for --rename custom")
	uploadCmd.Flags().BoolVarP(&uploadFollow, "follow", "f", false, "follow the queue after uploading")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	files := make([]upload.File, 0, len(args))
	for _, path := range args {
		f, err := upload.FileFromPath(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	selected, err := upload.Select(files)
	if err != nil {
		return err
	}
	if skipped := len(files) - len(selected); skipped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipping %d non-WebM file(s)\n", skipped)
	}

	rename, err := renameFromFlags(cmd)
	if err != nil {
		return err
	}

	if uploadFollow {
		return follow(cmd, cfg.DownloadDir, &pendingBatch{files: selected, rename: rename})
	}

	out := cmd.OutOrStdout()
	ctrl := upload.NewController(apiClient, upload.NotifierFunc(func(msg string) {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}), logger)
	ctrl.OnJob = func(job models.Job) {
		fmt.Fprintf(out, "Queued %s → %s (job %s)\n", job.Filename, job.OutputName, job.ID)
	}

	report := ctrl.Run(cmd.Context(), selected, rename)
	if n := len(report.Failed); n > 0 {
		return fmt.Errorf("%d of %d uploads failed", n, len(selected))
	}
	fmt.Fprintf(out, "Uploaded %d file(s) in %s\n", len(report.Uploaded), report.Duration.Round(time.Millisecond))
	return nil
}

// renameFromFlags reads the rename strategy, falling back to config defaults.
func renameFromFlags(cmd *cobra.Command) (upload.Rename, error) {
	mode := uploadRename
	if !cmd.Flags().Changed("rename") {
		mode = cfg.Rename
	}
	name := uploadName
	if !cmd.Flags().Changed("name") {
		name = cfg.CustomName
	}

	m, err := upload.ParseRenameMode(mode)
	if err != nil {
		return upload.Rename{}, err
	}
	return upload.Rename{Mode: m, CustomName: name}, nil
}
