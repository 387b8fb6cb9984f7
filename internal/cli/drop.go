package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/webmconv/internal/dropzone"
	"github.com/raphaelgruber/webmconv/internal/upload"
	"github.com/spf13/cobra"
)

var dropExisting bool

var dropCmd = &cobra.Command{
	Use:   "drop <dir>",
	Short: "Upload files dropped into a folder",
	Long: `Watch a folder and upload WebM files as they appear.

Files arriving together form one selection, like a multi-file drop. A
selection is checked the same way as 'webmconv upload': non-WebM files
are skipped and an oversized file rejects the whole selection. Queue
changes are printed as they happen.

Examples:
  webmconv drop ~/Videos/inbox
  webmconv drop ./incoming --existing --rename date`,
	Args: cobra.ExactArgs(1),
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVar(&dropExisting, "existing", false, "also upload files already in the folder")
	dropCmd.Flags().StringVarP(&uploadRename, "rename", "r", "keep", "rename mode (keep, custom, prefix, date)")
	dropCmd.Flags().StringVarP(&uploadName, "name", "n", "", "custom output name for --rename custom")
	rootCmd.AddCommand(dropCmd)
}

func runDrop(cmd *cobra.Command, args []string) error {
	rename, err := renameFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	batches, errs, err := dropzone.Watch(ctx, dropzone.Config{
		Dir:         args[0],
		Debounce:    cfg.DropDebounce,
		InitialScan: dropExisting,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	q := newQueue(ctx)
	if err := startLive(ctx, q.send); err != nil {
		return err
	}
	go uploadDrops(ctx, batches, errs, rename, q.send)

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s\n", args[0])
	return newLineSession(cmd.OutOrStdout()).run(ctx, q)
}

// uploadDrops validates and uploads each dropped batch in turn.
// Custom name suffixes keep counting across batches.
func uploadDrops(ctx context.Context, batches <-chan []upload.File, errs <-chan error, rename upload.Rename, send sendFunc) {
	ctrl := newUploadController(send)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			send(noticeMsg{text: fmt.Sprintf("Drop folder error: %v", err), isErr: true})
		case batch, ok := <-batches:
			if !ok {
				return
			}
			selected, err := upload.Select(batch)
			if err != nil {
				logger.Warn("dropped files rejected", "files", len(batch), "error", err)
				send(noticeMsg{text: fmt.Sprintf("Skipped %d dropped file(s): %v", len(batch), err), isErr: true})
				continue
			}
			send(batchDoneMsg{ctrl.Run(ctx, selected, rename)})
			rename.Offset += len(selected)
		}
	}
}
