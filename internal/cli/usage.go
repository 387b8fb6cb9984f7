package cli

import (
	"fmt"
	"io"

	"github.com/raphaelgruber/webmconv/internal/metrics"
	"github.com/raphaelgruber/webmconv/internal/render"
)

// printSessionStats displays client-side statistics for this invocation.
func printSessionStats(w io.Writer, s metrics.Snapshot) {
	fmt.Fprintf(w, "\nSession Statistics\n")
	fmt.Fprintf(w, "══════════════════\n")
	fmt.Fprintf(w, "Uptime: %.1f seconds\n", s.UptimeSeconds)

	if s.Upload != nil {
		fmt.Fprintf(w, "\nUploads:\n")
		printOpStats(w, s.Upload)
		printTransferStats(w, s.Upload)
	}

	if s.Download != nil {
		fmt.Fprintf(w, "\nDownloads:\n")
		printOpStats(w, s.Download)
		printTransferStats(w, s.Download)
	}

	if s.Connect != nil {
		fmt.Fprintf(w, "\nPush channel connects:\n")
		printOpStats(w, s.Connect)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op *metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Failures: %d, Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
	if op.Count > 0 {
		fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
			op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
}

// printTransferStats displays byte volume if any was transferred.
func printTransferStats(w io.Writer, op *metrics.OperationSnapshot) {
	if op.TotalBytes == 0 {
		return
	}
	fmt.Fprintf(w, "  Volume: %s\n", render.Size(op.TotalBytes))
}
