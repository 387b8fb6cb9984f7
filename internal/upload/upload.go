// Package upload validates file selections and uploads them one at a time.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/webmconv/internal/client"
	"github.com/raphaelgruber/webmconv/internal/models"
)

// MaxFileSize is the largest file the server accepts.
const MaxFileSize = 100 * 1024 * 1024

// Sentinel errors for selection validation. The whole batch is rejected.
var (
	ErrNoWebM   = errors.New("please select WebM files only")
	ErrTooLarge = errors.New("some files exceed 100MB limit")
)

// File is one user-selected file.
type File struct {
	Name string // display name sent to the server
	Path string // local path opened at upload time
	Size int64
}

// FileFromPath stats path and builds a File for it.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{Name: filepath.Base(path), Path: path, Size: info.Size()}, nil
}

// Select filters files to WebM and enforces the size cap.
// Non-WebM files are dropped silently; one oversized file rejects the whole batch.
func Select(files []File) ([]File, error) {
	var webm []File
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f.Name), ".webm") {
			webm = append(webm, f)
		}
	}
	if len(webm) == 0 {
		return nil, ErrNoWebM
	}

	var oversized []string
	for _, f := range webm {
		if f.Size > MaxFileSize {
			oversized = append(oversized, f.Name)
		}
	}
	if len(oversized) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, strings.Join(oversized, ", "))
	}

	return webm, nil
}

// RenameMode selects how the server names the converted file.
type RenameMode string

const (
	RenameKeep   RenameMode = "keep"
	RenameCustom RenameMode = "custom"
	RenamePrefix RenameMode = "prefix"
	RenameDate   RenameMode = "date"
)

// ParseRenameMode validates a user-supplied rename mode.
func ParseRenameMode(s string) (RenameMode, error) {
	switch m := RenameMode(strings.ToLower(s)); m {
	case RenameKeep, RenameCustom, RenamePrefix, RenameDate:
		return m, nil
	case "":
		return RenameKeep, nil
	default:
		return "", fmt.Errorf("unknown rename mode %q (expected keep, custom, prefix or date)", s)
	}
}

// Rename is the rename strategy for a batch.
type Rename struct {
	Mode       RenameMode
	CustomName string
	// Offset counts files already sent under CustomName by earlier batches.
	// Suffixes continue after it.
	Offset int
}

// CustomNames returns the custom_name for each file in a batch of n.
// With several files each name gets its 1-based position as a suffix.
// A lone file in the first batch keeps the plain name.
// Entries are empty when no custom name applies.
func (r Rename) CustomNames(n int) []string {
	names := make([]string, n)
	if r.Mode != RenameCustom || r.CustomName == "" {
		return names
	}
	for i := range names {
		if n > 1 || r.Offset > 0 {
			names[i] = fmt.Sprintf("%s_%d", r.CustomName, r.Offset+i+1)
		} else {
			names[i] = r.CustomName
		}
	}
	return names
}

// Uploader sends one file to the server.
type Uploader interface {
	Upload(ctx context.Context, in client.UploadRequest) (*models.Job, error)
}

// Notifier surfaces a per-file failure to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify calls f(msg).
func (f NotifierFunc) Notify(msg string) { f(msg) }

// FileError records a failed upload.
type FileError struct {
	File File
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.File.Name, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Report summarises a finished batch.
type Report struct {
	BatchID  string
	Uploaded []models.Job
	Failed   []FileError
	Duration time.Duration
}

// Controller uploads validated batches strictly sequentially.
type Controller struct {
	uploader Uploader
	notifier Notifier
	open     func(path string) (io.ReadCloser, error)
	logger   *slog.Logger

	// OnJob receives each job as its upload response arrives.
	OnJob func(job models.Job)
	// OnReset fires once the batch has finished, whatever the outcome.
	OnReset func()
}

// NewController creates a controller. A nil notifier discards messages.
func NewController(u Uploader, n Notifier, logger *slog.Logger) *Controller {
	if n == nil {
		n = NotifierFunc(func(string) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		uploader: u,
		notifier: n,
		open:     func(path string) (io.ReadCloser, error) { return os.Open(path) },
		logger:   logger,
	}
}

// Run uploads files in order, one request in flight at a time.
// A failed file is reported and skipped; the rest of the batch continues.
// files must already have passed Select.
func (c *Controller) Run(ctx context.Context, files []File, rename Rename) (report Report) {
	start := time.Now()
	report = Report{BatchID: uuid.New().String()[:8]}
	logger := c.logger.With("batch_id", report.BatchID)
	names := rename.CustomNames(len(files))

	defer func() {
		report.Duration = time.Since(start)
		if c.OnReset != nil {
			c.OnReset()
		}
	}()

	logger.Info("upload batch started", "files", len(files), "rename", rename.Mode)

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, FileError{File: f, Err: err})
			continue
		}

		job, err := c.uploadOne(ctx, f, rename.Mode, names[i])
		if err != nil {
			logger.Error("upload failed", "file", f.Name, "error", err)
			c.notifier.Notify(fmt.Sprintf("Failed to upload %s", f.Name))
			report.Failed = append(report.Failed, FileError{File: f, Err: err})
			continue
		}

		logger.Info("upload accepted", "file", f.Name, "job_id", job.ID, "output", job.OutputName)
		report.Uploaded = append(report.Uploaded, *job)
		if c.OnJob != nil {
			c.OnJob(*job)
		}
	}

	logger.Info("upload batch finished", "uploaded", len(report.Uploaded), "failed", len(report.Failed))
	return report
}

func (c *Controller) uploadOne(ctx context.Context, f File, mode RenameMode, customName string) (*models.Job, error) {
	body, err := c.open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer body.Close()

	return c.uploader.Upload(ctx, client.UploadRequest{
		Filename:   f.Name,
		Body:       body,
		Rename:     string(mode),
		CustomName: customName,
	})
}
