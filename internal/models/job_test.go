package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusQueued, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{Status("paused"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestJobDecodesServerPayload(t *testing.T) {
	payload := `{
		"id": "0b5e",
		"filename": "talk.webm",
		"filesize": 2048,
		"output_name": "talk.mp4",
		"status": "processing",
		"progress": 42,
		"queue_position": 0,
		"started_at": "2026-10-19T10:00:00Z",
		"completed_at": "0001-01-01T00:00:00Z",
		"created_at": "2026-10-19T09:59:00Z"
	}`

	var job Job
	require.NoError(t, json.Unmarshal([]byte(payload), &job))

	assert.Equal(t, "0b5e", job.ID)
	assert.Equal(t, StatusProcessing, job.Status)
	assert.Equal(t, 42, job.Progress)

	started, ok := job.Started()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), started)

	_, ok = job.Completed()
	assert.False(t, ok, "zero completed_at should count as unset")
}

func TestJobDecodesPartialPayload(t *testing.T) {
	var job Job
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","status":"queued"}`), &job))

	assert.Equal(t, "", job.Filename)
	assert.Equal(t, int64(0), job.Filesize)
	_, ok := job.Started()
	assert.False(t, ok)
}

func TestJobEqual(t *testing.T) {
	t1 := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	t2 := t1.In(time.FixedZone("CEST", 2*3600))
	zero := time.Time{}

	a := Job{ID: "1", Status: StatusProcessing, Progress: 10, StartedAt: &t1}
	b := Job{ID: "1", Status: StatusProcessing, Progress: 10, StartedAt: &t2}
	assert.True(t, a.Equal(b), "same instant in another zone is equal")

	b.Progress = 11
	assert.False(t, a.Equal(b))

	c := Job{ID: "1", CompletedAt: &zero}
	d := Job{ID: "1"}
	assert.True(t, c.Equal(d), "zero time equals unset")
}
