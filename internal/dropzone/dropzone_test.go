package dropzone

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raphaelgruber/webmconv/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func names(batch []upload.File) []string {
	var out []string
	for _, f := range batch {
		out = append(out, f.Name)
	}
	return out
}

func next(t *testing.T, ch <-chan []upload.File) []upload.File {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestWatchCoalescesBurstIntoOneBatch(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, _, err := Watch(ctx, Config{Dir: dir, Debounce: 300 * time.Millisecond, Logger: testLogger()})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.webm"), []byte("bb"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.webm"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial"), []byte("x"), 0644))

	batch := next(t, batches)
	assert.Equal(t, []string{"a.webm", "b.webm"}, names(batch))
	assert.Equal(t, int64(2), batch[1].Size)
}

func TestWatchEmitsEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, _, err := Watch(ctx, Config{Dir: dir, Debounce: 50 * time.Millisecond, Logger: testLogger()})
	require.NoError(t, err)

	path := filepath.Join(dir, "a.webm")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))
	assert.Equal(t, []string{"a.webm"}, names(next(t, batches)))

	// Rewriting a seen file does not emit it again.
	require.NoError(t, os.WriteFile(path, []byte("aa"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.mp4"), []byte("c"), 0644))
	assert.Equal(t, []string{"c.mp4"}, names(next(t, batches)))
}

func TestWatchInitialScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.webm"), []byte("o"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, _, err := Watch(ctx, Config{Dir: dir, InitialScan: true, Logger: testLogger()})
	require.NoError(t, err)
	assert.Equal(t, []string{"old.webm"}, names(next(t, batches)))
}

func TestWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	batches, errs, err := Watch(ctx, Config{Dir: t.TempDir(), Logger: testLogger()})
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-batches:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("batches not closed")
	}
	_, ok := <-errs
	assert.False(t, ok)
}

func TestWatchRejectsBadDir(t *testing.T) {
	_, _, err := Watch(context.Background(), Config{})
	assert.Error(t, err)

	_, _, err = Watch(context.Background(), Config{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, _, err = Watch(context.Background(), Config{Dir: file})
	assert.ErrorContains(t, err, "not a directory")
}
