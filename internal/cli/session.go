package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/raphaelgruber/webmconv/internal/jobstore"
	"github.com/raphaelgruber/webmconv/internal/live"
	"github.com/raphaelgruber/webmconv/internal/models"
	"github.com/raphaelgruber/webmconv/internal/transfer"
	"github.com/raphaelgruber/webmconv/internal/ui"
	"github.com/raphaelgruber/webmconv/internal/upload"
)

// Messages delivered to the goroutine that owns the job store.
type snapshotMsg struct{ jobs []models.Job }

type updateMsg struct{ job models.Job }

type connMsg struct{ ok bool }

type reloadMsg struct {
	jobs []models.Job
	err  error
}

type noticeMsg struct {
	text  string
	isErr bool
}

type downloadMsg struct {
	res *transfer.Result
	err error
}

type batchDoneMsg struct{ report upload.Report }

// sendFunc hands a message to the store goroutine.
type sendFunc func(msg any)

// startLive runs the push channel until ctx is done.
func startLive(ctx context.Context, send sendFunc) error {
	url, err := apiClient.WebSocketURL()
	if err != nil {
		return fmt.Errorf("push channel url: %w", err)
	}

	h := live.HandlerFuncs{
		OnSnapshot:  func(jobs []models.Job) { send(snapshotMsg{jobs}) },
		OnUpdate:    func(job models.Job) { send(updateMsg{job}) },
		OnConnected: func(ok bool) { send(connMsg{ok}) },
	}
	ch := live.New(url, h, live.WithLogger(logger), live.WithMetrics(stats))
	go func() { _ = ch.Run(ctx) }()
	return nil
}

// newUploadController wires upload results and failures into send.
func newUploadController(send sendFunc) *upload.Controller {
	notify := upload.NotifierFunc(func(msg string) { send(noticeMsg{text: msg, isErr: true}) })
	ctrl := upload.NewController(apiClient, notify, logger)
	ctrl.OnJob = func(job models.Job) { send(updateMsg{job}) }
	return ctrl
}

// startUploads uploads files in the background and reports the batch when done.
func startUploads(ctx context.Context, files []upload.File, rename upload.Rename, send sendFunc) {
	ctrl := newUploadController(send)
	go func() {
		report := ctrl.Run(ctx, files, rename)
		send(batchDoneMsg{report})
	}()
}

// queue is a buffered hand-off for the line-mode loop.
type queue struct {
	ctx context.Context
	ch  chan any
}

func newQueue(ctx context.Context) *queue {
	return &queue{ctx: ctx, ch: make(chan any, 64)}
}

func (q *queue) send(msg any) {
	select {
	case q.ch <- msg:
	case <-q.ctx.Done():
	}
}

// lineSession prints one line per job change instead of drawing a board.
type lineSession struct {
	out   io.Writer
	store *jobstore.Store

	// Set once an upload batch was started; the session ends when the
	// batch is done and all of its jobs have finished.
	follow  bool
	waiting map[string]bool
	batched bool
}

func newLineSession(out io.Writer) *lineSession {
	return &lineSession{out: out, store: jobstore.New()}
}

// run consumes q until ctx is done or a followed batch has finished.
func (s *lineSession) run(ctx context.Context, q *queue) error {
	fmt.Fprintf(s.out, "Following %s (Ctrl+C to stop)\n", apiClient.BaseURL())
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-q.ch:
			if s.handle(msg) {
				return nil
			}
		}
	}
}

// handle applies one message and reports whether the session is over.
func (s *lineSession) handle(msg any) bool {
	switch msg := msg.(type) {
	case snapshotMsg:
		s.print(s.store.IngestSnapshot(msg.jobs))
	case reloadMsg:
		if msg.err != nil {
			fmt.Fprintf(s.out, "Failed to load jobs: %v\n", msg.err)
			break
		}
		s.print(s.store.IngestSnapshot(msg.jobs))
	case updateMsg:
		s.print(s.store.ApplyUpdate(msg.job))
	case connMsg:
		if msg.ok {
			fmt.Fprintln(s.out, "Connected")
		} else {
			fmt.Fprintf(s.out, "Disconnected, reconnecting in %s\n", live.ReconnectDelay)
		}
	case noticeMsg:
		fmt.Fprintln(s.out, msg.text)
	case batchDoneMsg:
		r := msg.report
		fmt.Fprintf(s.out, "Uploaded %d of %d file(s) in %s\n",
			len(r.Uploaded), len(r.Uploaded)+len(r.Failed), r.Duration.Round(time.Millisecond))
		if s.follow {
			s.batched = true
			s.waiting = make(map[string]bool, len(r.Uploaded))
			for _, j := range r.Uploaded {
				s.waiting[j.ID] = true
			}
		}
	}
	return s.finished()
}

func (s *lineSession) finished() bool {
	if !s.follow || !s.batched {
		return false
	}
	for id := range s.waiting {
		job, ok := s.store.Get(id)
		if !ok || !job.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func (s *lineSession) print(c jobstore.Change) {
	for _, in := range c.Instructions {
		if in.Op == jobstore.OpMove {
			continue
		}
		fmt.Fprintln(s.out, ui.Line(in.View))
	}
}
