// Package dropzone turns files landing in a directory into upload selections.
package dropzone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/raphaelgruber/webmconv/internal/upload"
)

// DefaultDebounce coalesces a burst of file events into one selection.
const DefaultDebounce = time.Second

// Config controls a drop folder watch.
type Config struct {
	Dir         string
	Debounce    time.Duration // quiet period before a batch is emitted
	InitialScan bool          // emit files already present as the first batch
	Logger      *slog.Logger
}

// Watch emits one batch per burst of new files in cfg.Dir. Each path is
// emitted at most once. Both channels close when ctx is done.
func Watch(ctx context.Context, cfg Config) (<-chan []upload.File, <-chan error, error) {
	if cfg.Dir == "" {
		return nil, nil, errors.New("no directory provided")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open drop folder: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("open drop folder: %s is not a directory", cfg.Dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(cfg.Dir); err != nil {
		_ = w.Close()
		return nil, nil, fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}

	var initial []string
	if cfg.InitialScan {
		entries, err := os.ReadDir(cfg.Dir)
		if err != nil {
			_ = w.Close()
			return nil, nil, fmt.Errorf("scan drop folder: %w", err)
		}
		for _, e := range entries {
			initial = append(initial, filepath.Join(cfg.Dir, e.Name()))
		}
	}

	d := &dropper{
		cfg:     cfg,
		out:     make(chan []upload.File),
		errs:    make(chan error, 1),
		pending: map[string]struct{}{},
		seen:    map[string]struct{}{},
	}
	go d.loop(ctx, w, initial)

	return d.out, d.errs, nil
}

type dropper struct {
	cfg     Config
	out     chan []upload.File
	errs    chan error
	pending map[string]struct{}
	seen    map[string]struct{}
}

func (d *dropper) loop(ctx context.Context, w *fsnotify.Watcher, initial []string) {
	defer close(d.out)
	defer close(d.errs)
	defer w.Close()

	for _, p := range initial {
		d.pending[p] = struct{}{}
	}
	if !d.flush(ctx) {
		return
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
				continue
			}
			d.pending[e.Name] = struct{}{}
			if d.cfg.Debounce <= 0 {
				if !d.flush(ctx) {
					return
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(d.cfg.Debounce)
			} else {
				timer.Reset(d.cfg.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if !d.flush(ctx) {
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.cfg.Logger.Error("drop folder watcher error", "dir", d.cfg.Dir, "error", err)
			select {
			case d.errs <- err:
			default:
			}
		}
	}
}

// flush emits unseen pending files as one batch. It reports false once ctx is done.
func (d *dropper) flush(ctx context.Context) bool {
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
		delete(d.pending, p)
	}
	slices.Sort(paths)

	var batch []upload.File
	for _, p := range paths {
		if _, ok := d.seen[p]; ok {
			continue
		}
		if strings.HasPrefix(filepath.Base(p), ".") {
			continue
		}
		f, err := upload.FileFromPath(p)
		if err != nil {
			d.cfg.Logger.Debug("skipping dropped path", "path", p, "error", err)
			continue
		}
		d.seen[p] = struct{}{}
		batch = append(batch, f)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	select {
	case d.out <- batch:
		return true
	case <-ctx.Done():
		return false
	}
}
