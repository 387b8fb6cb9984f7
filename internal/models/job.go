// Package models defines the data structures exchanged with the conversion server.
package models

import "time"

// Status is the lifecycle state of a conversion job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job mirrors one conversion job as reported by the server.
// The client never validates it; missing fields decode to zero values.
type Job struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename"`
	Filesize      int64      `json:"filesize"`
	OutputName    string     `json:"output_name"`
	Status        Status     `json:"status"`
	Progress      int        `json:"progress"`
	QueuePosition int        `json:"queue_position"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Started returns the start time, treating the server's zero time as unset.
func (j Job) Started() (time.Time, bool) {
	return timeSet(j.StartedAt)
}

// Completed returns the completion time, treating the server's zero time as unset.
func (j Job) Completed() (time.Time, bool) {
	return timeSet(j.CompletedAt)
}

// Equal reports whether two jobs carry identical data.
func (j Job) Equal(o Job) bool {
	return j.ID == o.ID &&
		j.Filename == o.Filename &&
		j.Filesize == o.Filesize &&
		j.OutputName == o.OutputName &&
		j.Status == o.Status &&
		j.Progress == o.Progress &&
		j.QueuePosition == o.QueuePosition &&
		j.Error == o.Error &&
		sameTime(j.StartedAt, o.StartedAt) &&
		sameTime(j.CompletedAt, o.CompletedAt) &&
		sameTime(j.CreatedAt, o.CreatedAt)
}

func timeSet(t *time.Time) (time.Time, bool) {
	if t == nil || t.IsZero() {
		return time.Time{}, false
	}
	return *t, true
}

func sameTime(a, b *time.Time) bool {
	at, aok := timeSet(a)
	bt, bok := timeSet(b)
	if aok != bok {
		return false
	}
	return at.Equal(bt)
}
