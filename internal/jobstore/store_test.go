package jobstore

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/raphaelgruber/webmconv/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func job(id string, status models.Status) models.Job {
	return models.Job{
		ID:         id,
		Filename:   id + ".webm",
		OutputName: id + ".mp4",
		Filesize:   1024,
		Status:     status,
	}
}

// surface replays instructions the way a UI would, so tests can check that
// instructions alone reproduce the store's order.
type surface struct {
	nodes []Handle
	ids   map[Handle]string
}

func newSurface() *surface {
	return &surface{ids: make(map[Handle]string)}
}

func (f *surface) apply(t *testing.T, c Change) {
	t.Helper()
	for _, in := range c.Instructions {
		switch in.Op {
		case OpInsert:
			_, dup := f.ids[in.Handle]
			require.False(t, dup, "insert for existing handle %d", in.Handle)
			f.ids[in.Handle] = in.ID
			f.put(in.Handle, in.Before)
		case OpReplace:
			require.Contains(t, f.ids, in.Handle, "replace for unknown handle")
		case OpMove:
			require.Contains(t, f.ids, in.Handle, "move for unknown handle")
			f.drop(in.Handle)
			f.put(in.Handle, in.Before)
		}
	}
}

func (f *surface) put(h, before Handle) {
	if before != 0 {
		for i, cur := range f.nodes {
			if cur == before {
				f.nodes = append(f.nodes[:i], append([]Handle{h}, f.nodes[i:]...)...)
				return
			}
		}
	}
	f.nodes = append(f.nodes, h)
}

func (f *surface) drop(h Handle) {
	for i, cur := range f.nodes {
		if cur == h {
			f.nodes = append(f.nodes[:i], f.nodes[i+1:]...)
			return
		}
	}
}

func (f *surface) order() []string {
	out := make([]string, 0, len(f.nodes))
	for _, h := range f.nodes {
		out = append(out, f.ids[h])
	}
	return out
}

func assertPartitioned(t *testing.T, s *Store) {
	t.Helper()
	seenTerminal := false
	for _, j := range s.Jobs() {
		if j.Status.IsTerminal() {
			seenTerminal = true
			continue
		}
		require.False(t, seenTerminal, "non-terminal job %s after a terminal job in %v", j.ID, s.Order())
	}
}

func TestApplyUpdateInsertsNewJob(t *testing.T) {
	s := newTestStore()

	c := s.ApplyUpdate(job("a", models.StatusQueued))

	require.Len(t, c.Instructions, 1)
	in := c.Instructions[0]
	assert.Equal(t, OpInsert, in.Op)
	assert.Equal(t, "a", in.ID)
	assert.NotZero(t, in.Handle)
	assert.Zero(t, in.Before)
	assert.Equal(t, "Queued", in.View.StatusLabel)
	assert.Equal(t, 1, c.Aggregates.Queued)
	assert.Equal(t, in.Handle, s.Handle("a"))
}

func TestApplyUpdateReplacesInPlace(t *testing.T) {
	s := newTestStore()
	s.ApplyUpdate(job("a", models.StatusQueued))
	s.ApplyUpdate(job("b", models.StatusQueued))
	h := s.Handle("a")

	processing := job("a", models.StatusProcessing)
	processing.Progress = 50
	c := s.ApplyUpdate(processing)

	require.Len(t, c.Instructions, 1)
	assert.Equal(t, OpReplace, c.Instructions[0].Op)
	assert.Equal(t, h, c.Instructions[0].Handle)
	assert.Equal(t, "processing", c.Instructions[0].View.StatusClass)
	assert.Equal(t, []string{"a", "b"}, s.Order(), "non-terminal update must not reorder")
	assert.Equal(t, 2, s.Len())
}

func TestPlacementKeepsNonTerminalFirst(t *testing.T) {
	s := newTestStore()
	f := newSurface()

	f.apply(t, s.ApplyUpdate(job("done1", models.StatusCompleted)))
	f.apply(t, s.ApplyUpdate(job("q1", models.StatusQueued)))
	f.apply(t, s.ApplyUpdate(job("fail1", models.StatusFailed)))
	f.apply(t, s.ApplyUpdate(job("q2", models.StatusQueued)))

	assert.Equal(t, []string{"q1", "q2", "done1", "fail1"}, s.Order())
	assert.Equal(t, s.Order(), f.order())
}

func TestInsertBeforeFirstTerminalReturnsItsHandle(t *testing.T) {
	s := newTestStore()
	s.ApplyUpdate(job("done", models.StatusCompleted))

	c := s.ApplyUpdate(job("new", models.StatusQueued))

	require.Len(t, c.Instructions, 1)
	assert.Equal(t, s.Handle("done"), c.Instructions[0].Before)
}

func TestTransitionToTerminalMovesToEnd(t *testing.T) {
	s := newTestStore()
	f := newSurface()
	f.apply(t, s.ApplyUpdate(job("a", models.StatusProcessing)))
	f.apply(t, s.ApplyUpdate(job("b", models.StatusQueued)))
	f.apply(t, s.ApplyUpdate(job("old", models.StatusFailed)))

	c := s.ApplyUpdate(job("a", models.StatusCompleted))
	f.apply(t, c)

	require.Len(t, c.Instructions, 2)
	assert.Equal(t, OpReplace, c.Instructions[0].Op)
	assert.Equal(t, OpMove, c.Instructions[1].Op)
	assert.Zero(t, c.Instructions[1].Before)
	assert.Equal(t, []string{"b", "old", "a"}, s.Order())
	assert.Equal(t, s.Order(), f.order())
}

func TestTerminalToTerminalStaysInPlace(t *testing.T) {
	s := newTestStore()
	s.ApplyUpdate(job("a", models.StatusCompleted))
	s.ApplyUpdate(job("b", models.StatusCompleted))

	c := s.ApplyUpdate(job("a", models.StatusFailed))

	require.Len(t, c.Instructions, 1)
	assert.Equal(t, OpReplace, c.Instructions[0].Op)
	assert.Equal(t, []string{"a", "b"}, s.Order())
}

func TestIngestSnapshotIsIdempotent(t *testing.T) {
	s := newTestStore()
	f := newSurface()
	snapshot := []models.Job{
		job("a", models.StatusProcessing),
		job("b", models.StatusCompleted),
		job("c", models.StatusQueued),
	}

	first := s.IngestSnapshot(snapshot)
	f.apply(t, first)
	order := s.Order()
	assert.Len(t, first.Instructions, 3)

	second := s.IngestSnapshot(snapshot)
	f.apply(t, second)

	assert.Empty(t, second.Instructions, "identical snapshot should be a no-op")
	assert.Equal(t, order, s.Order())
	assert.Equal(t, first.Aggregates, second.Aggregates)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, s.Order(), f.order())
}

func TestRESTAndChannelSnapshotsMerge(t *testing.T) {
	s := newTestStore()

	s.IngestSnapshot([]models.Job{job("a", models.StatusQueued), job("b", models.StatusQueued)})
	c := s.IngestSnapshot([]models.Job{job("b", models.StatusQueued), job("c", models.StatusQueued)})

	require.Len(t, c.Instructions, 1)
	assert.Equal(t, "c", c.Instructions[0].ID)
	assert.Equal(t, []string{"a", "b", "c"}, s.Order())
}

func TestUpsertNeverDuplicates(t *testing.T) {
	s := newTestStore()
	f := newSurface()

	for i := range 20 {
		j := job("same", models.StatusProcessing)
		j.Progress = i * 5
		f.apply(t, s.ApplyUpdate(j))
	}

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"same"}, s.Order())
	assert.Len(t, f.nodes, 1)
	got, ok := s.Get("same")
	require.True(t, ok)
	assert.Equal(t, 95, got.Progress, "last write wins")
}

func TestOrderingInvariantUnderRandomUpdates(t *testing.T) {
	statuses := []models.Status{
		models.StatusQueued,
		models.StatusProcessing,
		models.StatusCompleted,
		models.StatusFailed,
	}

	for seed := range uint64(25) {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, seed*7+1))
			s := newTestStore()
			f := newSurface()

			for range 200 {
				id := fmt.Sprintf("job-%d", rng.IntN(12))
				j := job(id, statuses[rng.IntN(len(statuses))])
				j.Progress = rng.IntN(101)

				f.apply(t, s.ApplyUpdate(j))

				assertPartitioned(t, s)
				require.Equal(t, s.Order(), f.order())
				require.Len(t, f.nodes, s.Len())
			}
		})
	}
}

func TestRefreshReRendersTimeDependentJobs(t *testing.T) {
	now := fixedNow
	s := New(WithClock(func() time.Time { return now }))

	started := fixedNow.Add(-10 * time.Second)
	p := job("p", models.StatusProcessing)
	p.StartedAt = &started
	s.ApplyUpdate(p)
	s.ApplyUpdate(job("q", models.StatusQueued))

	now = now.Add(50 * time.Second)
	c := s.Refresh()

	require.Len(t, c.Instructions, 1)
	in := c.Instructions[0]
	assert.Equal(t, OpReplace, in.Op)
	assert.Equal(t, "p", in.ID)
	require.NotNil(t, in.View.Progress)
	assert.Equal(t, "1m 0s", in.View.Progress.Elapsed)
}

func TestRefreshSkipsUnchangedViews(t *testing.T) {
	now := fixedNow
	s := New(WithClock(func() time.Time { return now }))

	started := fixedNow.Add(-10 * time.Second)
	p := job("p", models.StatusProcessing)
	p.StartedAt = &started
	s.ApplyUpdate(p)

	now = now.Add(400 * time.Millisecond)
	assert.Empty(t, s.Refresh().Instructions, "elapsed label still reads 10s")

	now = now.Add(time.Second)
	require.Len(t, s.Refresh().Instructions, 1)
	assert.Empty(t, s.Refresh().Instructions, "second tick at the same instant")
}

func TestCompletedAccessor(t *testing.T) {
	s := newTestStore()
	s.IngestSnapshot([]models.Job{
		job("a", models.StatusCompleted),
		job("b", models.StatusFailed),
		job("c", models.StatusQueued),
		job("d", models.StatusCompleted),
	})

	var ids []string
	for _, j := range s.Completed() {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"a", "d"}, ids)
}

func TestViewsFollowOrder(t *testing.T) {
	s := newTestStore()
	s.ApplyUpdate(job("done", models.StatusCompleted))
	s.ApplyUpdate(job("queued", models.StatusQueued))

	views := s.Views()
	require.Len(t, views, 2)
	assert.Equal(t, "queued", views[0].ID)
	assert.Equal(t, "done", views[1].ID)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "replace", OpReplace.String())
	assert.Equal(t, "move", OpMove.String())
	assert.Equal(t, "unknown", Op(0).String())
}
