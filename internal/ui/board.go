// Package ui applies job store instructions to a terminal board.
package ui

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/bubbles/v2/progress"
	"github.com/raphaelgruber/webmconv/internal/jobstore"
	"github.com/raphaelgruber/webmconv/internal/models"
	"github.com/raphaelgruber/webmconv/internal/render"
)

// Board is the rendered surface for a jobstore.Store.
// Nodes are kept in the order the instructions dictate; the board never sorts.
type Board struct {
	nodes []jobstore.Handle
	ids   map[jobstore.Handle]string
	views map[jobstore.Handle]render.View
	agg   jobstore.Aggregates

	bar   progress.Model
	theme Theme

	connected bool
	notice    string
	noticeErr bool
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		ids:   make(map[jobstore.Handle]string),
		views: make(map[jobstore.Handle]render.View),
		bar: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
		theme: DefaultTheme,
	}
}

// Apply executes a change's instructions in order.
func (b *Board) Apply(c jobstore.Change) error {
	for _, in := range c.Instructions {
		switch in.Op {
		case jobstore.OpInsert:
			if _, ok := b.ids[in.Handle]; ok {
				return fmt.Errorf("insert: node %d already exists", in.Handle)
			}
			b.ids[in.Handle] = in.ID
			b.views[in.Handle] = in.View
			b.put(in.Handle, in.Before)
		case jobstore.OpReplace:
			if _, ok := b.ids[in.Handle]; !ok {
				return fmt.Errorf("replace: unknown node %d", in.Handle)
			}
			b.views[in.Handle] = in.View
		case jobstore.OpMove:
			if _, ok := b.ids[in.Handle]; !ok {
				return fmt.Errorf("move: unknown node %d", in.Handle)
			}
			b.drop(in.Handle)
			b.put(in.Handle, in.Before)
		default:
			return fmt.Errorf("unknown instruction %v", in.Op)
		}
	}
	b.agg = c.Aggregates
	return nil
}

func (b *Board) put(h, before jobstore.Handle) {
	if before != 0 {
		if i := slices.Index(b.nodes, before); i >= 0 {
			b.nodes = slices.Insert(b.nodes, i, h)
			return
		}
	}
	b.nodes = append(b.nodes, h)
}

func (b *Board) drop(h jobstore.Handle) {
	if i := slices.Index(b.nodes, h); i >= 0 {
		b.nodes = slices.Delete(b.nodes, i, i+1)
	}
}

// Order returns the job ids in display order.
func (b *Board) Order() []string {
	out := make([]string, len(b.nodes))
	for i, h := range b.nodes {
		out[i] = b.ids[h]
	}
	return out
}

// Aggregates returns the counts from the last applied change.
func (b *Board) Aggregates() jobstore.Aggregates {
	return b.agg
}

// SetConnected updates the push channel indicator.
func (b *Board) SetConnected(ok bool) {
	b.connected = ok
}

// SetNotice shows a one-line message under the list. An empty msg clears it.
func (b *Board) SetNotice(msg string, isErr bool) {
	b.notice = msg
	b.noticeErr = isErr
}

// Render draws the whole board.
func (b *Board) Render() string {
	var sb strings.Builder

	title := b.theme.titleStyle().Render("WebM → MP4")
	conn := b.theme.errorStyle().Render("○ reconnecting")
	if b.connected {
		conn = b.theme.completedStyle().Render("● live")
	}
	fmt.Fprintf(&sb, "%s  %s\n", title, conn)
	fmt.Fprintf(&sb, "%s · %s\n\n",
		b.theme.statusStyle().Render(b.agg.QueueLabel()),
		b.theme.statusStyle().Render(b.agg.ProcessingLabel()))

	if b.agg.Empty() || len(b.nodes) == 0 {
		sb.WriteString(b.theme.hintStyle().Render(jobstore.EmptyText))
		sb.WriteString("\n")
	} else {
		for _, h := range b.nodes {
			sb.WriteString(b.renderJob(b.views[h]))
		}
	}

	if b.agg.DownloadAllVisible() {
		sb.WriteString("\n")
		sb.WriteString(b.theme.buttonStyle().Render(b.agg.DownloadAllLabel()))
		sb.WriteString("\n")
	}

	if b.notice != "" {
		style := b.theme.statusStyle()
		if b.noticeErr {
			style = b.theme.errorStyle()
		}
		sb.WriteString("\n")
		sb.WriteString(style.Render(b.notice))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(b.theme.hintStyle().Render("d download all · r reload · q quit"))
	sb.WriteString("\n")
	return sb.String()
}

func (b *Board) renderJob(v render.View) string {
	var sb strings.Builder

	label := fmt.Sprintf("%-10s", v.StatusLabel)
	switch v.Status {
	case models.StatusCompleted:
		label = b.theme.completedStyle().Render("✓ " + label)
	case models.StatusFailed:
		label = b.theme.errorStyle().Render("✗ " + label)
	case models.StatusProcessing:
		label = b.theme.statusStyle().Render("⟳ " + label)
	default:
		label = b.theme.hintStyle().Render("• " + label)
	}

	fmt.Fprintf(&sb, "%s %s  %s", label, v.Filename, b.theme.hintStyle().Render(v.Size))
	if v.Queue != "" {
		fmt.Fprintf(&sb, "  %s", v.Queue)
	}
	sb.WriteString("\n")

	switch {
	case v.Progress != nil:
		pct := float64(v.Progress.Percent) / 100
		fmt.Fprintf(&sb, "    %s %3d%%  %s\n", b.bar.ViewAs(pct), v.Progress.Percent, v.Progress.Elapsed)
	case v.Download != nil:
		line := "    → " + v.OutputShort
		if v.Download.Duration != "" {
			line += "  (" + v.Download.Duration + ")"
		}
		sb.WriteString(b.theme.completedStyle().Render(line))
		sb.WriteString("\n")
	}
	if v.Error != "" {
		sb.WriteString(b.theme.errorStyle().Render("    " + v.Error))
		sb.WriteString("\n")
	}

	return sb.String()
}

// Line renders a view as a single plain line for non-interactive output.
func Line(v render.View) string {
	parts := []string{v.Filename, v.StatusLabel}
	switch {
	case v.Progress != nil:
		parts = append(parts, fmt.Sprintf("%d%%", v.Progress.Percent), v.Progress.Elapsed)
	case v.Download != nil:
		parts = append(parts, "→ "+v.OutputName)
		if v.Download.Duration != "" {
			parts = append(parts, v.Download.Duration)
		}
	}
	if v.Error != "" {
		parts = append(parts, v.Error)
	}
	if v.Queue != "" {
		parts = append(parts, v.Queue)
	}
	return strings.Join(parts, "  ")
}
