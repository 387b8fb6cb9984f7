package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsTransfers(t *testing.T) {
	c := NewCollector()

	c.RecordTransfer(OpUpload, 100*time.Millisecond, 1000)
	c.RecordTransfer(OpUpload, 300*time.Millisecond, 3000)
	c.RecordFailure(OpUpload)

	snap := c.Snapshot()
	require.NotNil(t, snap.Upload)
	assert.Equal(t, int64(2), snap.Upload.Count)
	assert.Equal(t, int64(1), snap.Upload.Failures)
	assert.Equal(t, int64(400), snap.Upload.TotalTimeMs)
	assert.InDelta(t, 200.0, snap.Upload.AvgTimeMs, 0.001)
	assert.Equal(t, int64(100), snap.Upload.MinTimeMs)
	assert.Equal(t, int64(300), snap.Upload.MaxTimeMs)
	assert.Equal(t, int64(4000), snap.Upload.TotalBytes)

	assert.Nil(t, snap.Download, "untouched operations are omitted")
}

func TestCollectorFailuresOnly(t *testing.T) {
	c := NewCollector()
	c.RecordFailure(OpConnect)
	c.RecordFailure(OpConnect)

	snap := c.Snapshot()
	require.NotNil(t, snap.Connect)
	assert.Equal(t, int64(0), snap.Connect.Count)
	assert.Equal(t, int64(2), snap.Connect.Failures)
	assert.Equal(t, int64(0), snap.Connect.MinTimeMs, "sentinel min must not leak")
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordTiming(OpConnect, time.Second)
		c.RecordFailure(OpConnect)
		_ = c.Snapshot()
	})
}

func TestCollectorConcurrentUse(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.RecordTiming(OpDownload, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), c.Snapshot().Download.Count)
}
