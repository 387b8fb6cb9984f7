// Package render turns jobs into display descriptions independent of any UI toolkit.
package render

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/webmconv/internal/models"
)

// MaxOutputNameLen is the display width of the output name before truncation.
const MaxOutputNameLen = 30

// View describes how a single job should be displayed.
type View struct {
	ID          string
	StatusClass string // "processing" while converting, empty otherwise

	Filename    string
	Status      models.Status
	StatusLabel string

	OutputName  string // full name, for tooltips
	OutputShort string
	Size        string
	Queue       string // "Queue: #n", empty when not queued

	Progress *ProgressView
	Download *DownloadView
	Error    string
}

// ProgressView is present only while a job is processing.
type ProgressView struct {
	Percent int
	Elapsed string
}

// DownloadView is present only once a job has completed.
type DownloadView struct {
	URL      string
	Duration string // empty when the start time is unknown
}

// Job renders a job as of now. It is pure: same job and now give the same view.
func Job(job models.Job, now time.Time) View {
	v := View{
		ID:          job.ID,
		Filename:    job.Filename,
		Status:      job.Status,
		StatusLabel: StatusLabel(job.Status),
		OutputName:  job.OutputName,
		OutputShort: TruncateFilename(job.OutputName, MaxOutputNameLen),
		Size:        Size(job.Filesize),
		Error:       job.Error,
	}

	if job.QueuePosition > 0 {
		v.Queue = fmt.Sprintf("Queue: #%d", job.QueuePosition)
	}

	switch job.Status {
	case models.StatusProcessing:
		v.StatusClass = "processing"
		elapsed := "0s"
		if started, ok := job.Started(); ok {
			elapsed = Elapsed(started, now)
		}
		v.Progress = &ProgressView{Percent: job.Progress, Elapsed: elapsed}

	case models.StatusCompleted:
		d := &DownloadView{URL: DownloadPath(job.ID)}
		if started, ok := job.Started(); ok {
			end := now
			if completed, ok := job.Completed(); ok {
				end = completed
			}
			d.Duration = Elapsed(started, end)
		}
		v.Download = d
	}

	return v
}

// Equal reports whether two views render identically.
func (v View) Equal(o View) bool {
	if v.Progress != nil && o.Progress != nil {
		if *v.Progress != *o.Progress {
			return false
		}
	} else if v.Progress != o.Progress {
		return false
	}
	if v.Download != nil && o.Download != nil {
		if *v.Download != *o.Download {
			return false
		}
	} else if v.Download != o.Download {
		return false
	}
	v.Progress, v.Download = nil, nil
	o.Progress, o.Download = nil, nil
	return v == o
}

// DownloadPath is the server path of a job's converted artifact.
func DownloadPath(id string) string {
	return "/api/jobs/" + id + "/download"
}

// StatusLabel returns the human label for a status, or the raw value if unknown.
func StatusLabel(s models.Status) string {
	switch s {
	case models.StatusQueued:
		return "Queued"
	case models.StatusProcessing:
		return "Processing"
	case models.StatusCompleted:
		return "Completed"
	case models.StatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// TimeDependent reports whether the job's view changes as the clock advances.
func TimeDependent(job models.Job) bool {
	switch job.Status {
	case models.StatusProcessing:
		_, ok := job.Started()
		return ok
	case models.StatusCompleted:
		_, started := job.Started()
		_, completed := job.Completed()
		return started && !completed
	}
	return false
}
