package jobstore

import (
	"fmt"

	"github.com/raphaelgruber/webmconv/internal/models"
)

// MaxConcurrent is the server's conversion concurrency cap. Display only.
const MaxConcurrent = 2

// EmptyText is shown in place of the list when no jobs are known.
const EmptyText = "No files in queue"

// Aggregates summarise the store for headers and bulk actions.
type Aggregates struct {
	Queued     int
	Processing int
	Completed  int
	Total      int
}

// Aggregates recomputes the counts from the current job map.
func (s *Store) Aggregates() Aggregates {
	a := Aggregates{Total: len(s.jobs)}
	for _, job := range s.jobs {
		switch job.Status {
		case models.StatusQueued:
			a.Queued++
		case models.StatusProcessing:
			a.Processing++
		case models.StatusCompleted:
			a.Completed++
		}
	}
	return a
}

// Empty reports whether the empty-state placeholder should be shown.
func (a Aggregates) Empty() bool {
	return a.Total == 0
}

// QueueLabel reads "1 file" or "n files".
func (a Aggregates) QueueLabel() string {
	if a.Queued == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", a.Queued)
}

// ProcessingLabel reads "n/2 processing".
func (a Aggregates) ProcessingLabel() string {
	return fmt.Sprintf("%d/%d processing", a.Processing, MaxConcurrent)
}

// DownloadAllVisible reports whether the bulk download action is offered.
func (a Aggregates) DownloadAllVisible() bool {
	return a.Completed > 0
}

// DownloadAllLabel reads "Download All (n)".
func (a Aggregates) DownloadAllLabel() string {
	return fmt.Sprintf("Download All (%d)", a.Completed)
}
