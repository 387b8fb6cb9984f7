package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/webmconv/internal/jobstore"
	"github.com/raphaelgruber/webmconv/internal/render"
	"github.com/raphaelgruber/webmconv/internal/transfer"
	"github.com/raphaelgruber/webmconv/internal/ui"
	"github.com/raphaelgruber/webmconv/internal/upload"
	"github.com/spf13/cobra"
)

const tickInterval = time.Second

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the conversion queue live",
	Long: `Show the conversion queue and follow it live over the push channel.

Keys:
  d        download all completed files
  r        reload the job list
  q        quit

When stdout is not a terminal, one line is printed per job change.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "output", "o", "", "directory for downloads (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := watchDir
	if dir == "" {
		dir = cfg.DownloadDir
	}
	return follow(cmd, dir, nil)
}

// pendingBatch is an upload batch to start once the board is running.
type pendingBatch struct {
	files  []upload.File
	rename upload.Rename
}

// follow runs the board, or line output when stdout is not a terminal.
func follow(cmd *cobra.Command, dir string, batch *pendingBatch) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if !usesTUI(cmd) {
		q := newQueue(ctx)
		s := newLineSession(cmd.OutOrStdout())
		s.follow = batch != nil
		if err := startLive(ctx, q.send); err != nil {
			return err
		}
		c := apiClient
		go func() {
			jobs, err := c.ListJobs(ctx)
			q.send(reloadMsg{jobs: jobs, err: err})
		}()
		if batch != nil {
			startUploads(ctx, batch.files, batch.rename, q.send)
		}
		return s.run(ctx, q)
	}

	m := newBoardModel(ctx, dir)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	send := func(msg any) { p.Send(msg) }

	if err := startLive(ctx, send); err != nil {
		return err
	}
	if batch != nil {
		startUploads(ctx, batch.files, batch.rename, send)
	}

	finalModel, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("board UI error: %w", err)
	}
	if m, ok := finalModel.(boardModel); ok && m.err != nil {
		return m.err
	}
	return nil
}

// tickMsg re-renders clock-dependent rows.
type tickMsg time.Time

// boardModel is the bubbletea model for the live board.
// The store is only touched from Update.
type boardModel struct {
	ctx         context.Context
	store       *jobstore.Store
	board       *ui.Board
	dir         string
	downloading bool
	err         error
}

func newBoardModel(ctx context.Context, dir string) boardModel {
	return boardModel{
		ctx:   ctx,
		store: jobstore.New(),
		board: ui.NewBoard(),
		dir:   dir,
	}
}

// Init loads the job list and starts the clock.
func (m boardModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.reload(),
	)
}

// Update handles messages and returns the updated model.
func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.board.SetNotice("Reloading...", false)
			return m, m.reload()
		case "d":
			if m.downloading {
				return m, nil
			}
			m.downloading = true
			m.board.SetNotice("Downloading...", false)
			return m, m.downloadAll()
		}

	case tickMsg:
		return m.apply(m.store.Refresh(), tickCmd())

	case snapshotMsg:
		return m.apply(m.store.IngestSnapshot(msg.jobs), nil)

	case reloadMsg:
		if msg.err != nil {
			m.board.SetNotice(fmt.Sprintf("Failed to load jobs: %v", msg.err), true)
			return m, nil
		}
		m.board.SetNotice("", false)
		return m.apply(m.store.IngestSnapshot(msg.jobs), nil)

	case updateMsg:
		return m.apply(m.store.ApplyUpdate(msg.job), nil)

	case connMsg:
		m.board.SetConnected(msg.ok)

	case noticeMsg:
		m.board.SetNotice(msg.text, msg.isErr)

	case batchDoneMsg:
		if len(msg.report.Failed) == 0 {
			m.board.SetNotice(fmt.Sprintf("Uploaded %d file(s)", len(msg.report.Uploaded)), false)
		}

	case downloadMsg:
		m.downloading = false
		switch {
		case errors.Is(msg.err, transfer.ErrNothingToDownload):
			m.board.SetNotice("No completed files to download", true)
		case msg.err != nil:
			m.board.SetNotice(fmt.Sprintf("Download failed: %v", msg.err), true)
		default:
			m.board.SetNotice(fmt.Sprintf("Saved %s (%s)", msg.res.Path, render.Size(msg.res.Bytes)), false)
		}
	}

	return m, nil
}

// apply hands a change to the board. A rejected instruction means the board
// and store disagree, which ends the session.
func (m boardModel) apply(c jobstore.Change, next tea.Cmd) (tea.Model, tea.Cmd) {
	if err := m.board.Apply(c); err != nil {
		logger.Error("board out of sync with store", "error", err)
		m.err = fmt.Errorf("apply job change: %w", err)
		return m, tea.Quit
	}
	return m, next
}

// View renders the board.
func (m boardModel) View() tea.View {
	return tea.NewView(m.board.Render())
}

// reload fetches the job list over REST.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m boardModel) reload() tea.Cmd {
	ctx, c := m.ctx, apiClient
	return func() tea.Msg {
		jobs, err := c.ListJobs(ctx)
		return reloadMsg{jobs: jobs, err: err}
	}
}

// downloadAll saves the completed jobs known right now.
func (m boardModel) downloadAll() tea.Cmd {
	ctx, c, dir := m.ctx, apiClient, m.dir
	jobs := m.store.Completed()
	return func() tea.Msg {
		res, err := transfer.DownloadCompleted(ctx, c, jobs, dir, time.Now)
		return downloadMsg{res: res, err: err}
	}
}

// tickCmd returns a command that sends a tick after the tick interval.
func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
