// Package transfer saves converted files from the server to disk.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raphaelgruber/webmconv/internal/client"
	"github.com/raphaelgruber/webmconv/internal/models"
)

// ErrNothingToDownload is returned when no job has completed yet.
var ErrNothingToDownload = errors.New("no completed files to download")

// Downloader fetches artifacts from the server. *client.Client satisfies it.
type Downloader interface {
	Download(ctx context.Context, id string, w io.Writer) (*client.Artifact, error)
	DownloadAll(ctx context.Context, ids []string, w io.Writer) (*client.Artifact, error)
}

// Result describes a saved file.
type Result struct {
	Path  string
	Bytes int64
	Jobs  int
}

// ArchiveName is the file name used for a bulk archive created at now.
func ArchiveName(now time.Time) string {
	return fmt.Sprintf("converted_videos_%d.zip", now.UnixMilli())
}

// DownloadCompleted saves every completed job into dir.
// One completed job is fetched directly; several are fetched as one archive.
func DownloadCompleted(ctx context.Context, dl Downloader, jobs []models.Job, dir string, now func() time.Time) (*Result, error) {
	var completed []models.Job
	for _, j := range jobs {
		if j.Status == models.StatusCompleted {
			completed = append(completed, j)
		}
	}

	switch len(completed) {
	case 0:
		return nil, ErrNothingToDownload
	case 1:
		return DownloadJob(ctx, dl, completed[0], dir)
	}

	ids := make([]string, len(completed))
	for i, j := range completed {
		ids[i] = j.ID
	}

	path := filepath.Join(dir, ArchiveName(now()))
	n, err := save(path, func(w io.Writer) (*client.Artifact, error) {
		return dl.DownloadAll(ctx, ids, w)
	})
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	return &Result{Path: path, Bytes: n, Jobs: len(completed)}, nil
}

// DownloadJob saves one job's converted file into dir under its output name.
func DownloadJob(ctx context.Context, dl Downloader, job models.Job, dir string) (*Result, error) {
	path := filepath.Join(dir, outputFilename(job))
	n, err := save(path, func(w io.Writer) (*client.Artifact, error) {
		return dl.Download(ctx, job.ID, w)
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", job.ID, err)
	}
	return &Result{Path: path, Bytes: n, Jobs: 1}, nil
}

// save writes to a temp file beside path and renames it into place on success.
func save(path string, fetch func(io.Writer) (*client.Artifact, error)) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".webmconv-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	a, err := fetch(tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("move into place: %w", err)
	}
	return a.Bytes, nil
}

// outputFilename picks a safe local name for a job's artifact.
func outputFilename(job models.Job) string {
	name := filepath.Base(strings.ReplaceAll(job.OutputName, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return job.ID + ".mp4"
	}
	return name
}
