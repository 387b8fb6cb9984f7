// Package jobstore holds the client-side view of the conversion queue.
//
// A Store is the single source of truth for job state in a session. It never
// touches a UI: every mutation returns a Change describing the render
// instructions a surface must apply to stay consistent with the store.
// A Store is not safe for concurrent use; drive it from one goroutine.
package jobstore

import (
	"slices"
	"time"

	"github.com/raphaelgruber/webmconv/internal/models"
	"github.com/raphaelgruber/webmconv/internal/render"
)

// Handle identifies a rendered node on a UI surface. Zero means "none".
type Handle uint64

// Op is the kind of a render instruction.
type Op int

const (
	// OpInsert creates a node for a job the surface has not seen.
	OpInsert Op = iota + 1
	// OpReplace swaps the content and status class of an existing node.
	OpReplace
	// OpMove repositions an existing node.
	OpMove
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpReplace:
		return "replace"
	case OpMove:
		return "move"
	default:
		return "unknown"
	}
}

// Instruction tells a surface how to update one node.
// For OpInsert and OpMove, Before names the node to precede; zero means append.
type Instruction struct {
	Op     Op
	ID     string
	Handle Handle
	Before Handle
	View   render.View
}

// Change is the result of one store mutation.
type Change struct {
	Instructions []Instruction
	Aggregates   Aggregates
}

// Store maps job ids to their latest state and rendered position.
type Store struct {
	jobs    map[string]models.Job
	handles map[string]Handle
	views   map[string]render.View // last view handed to the surface
	order   []string               // visible order, by job id
	next    Handle
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for time-dependent rendering.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		jobs:    make(map[string]models.Job),
		handles: make(map[string]Handle),
		views:   make(map[string]render.View),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestSnapshot upserts every job in a full job list.
// Jobs already present with identical data produce no instructions.
func (s *Store) IngestSnapshot(jobs []models.Job) Change {
	var ins []Instruction
	for _, job := range jobs {
		ins = append(ins, s.upsert(job)...)
	}
	return Change{Instructions: ins, Aggregates: s.Aggregates()}
}

// ApplyUpdate upserts a single job. The latest arrival wins.
func (s *Store) ApplyUpdate(job models.Job) Change {
	return Change{Instructions: s.upsert(job), Aggregates: s.Aggregates()}
}

// Refresh re-renders jobs whose view depends on the clock.
// Only views that differ from the last rendered one produce instructions.
func (s *Store) Refresh() Change {
	now := s.now()
	var ins []Instruction
	for _, id := range s.order {
		job := s.jobs[id]
		if !render.TimeDependent(job) {
			continue
		}
		view := render.Job(job, now)
		if view.Equal(s.views[id]) {
			continue
		}
		s.views[id] = view
		ins = append(ins, Instruction{
			Op:     OpReplace,
			ID:     id,
			Handle: s.handles[id],
			View:   view,
		})
	}
	return Change{Instructions: ins, Aggregates: s.Aggregates()}
}

func (s *Store) upsert(job models.Job) []Instruction {
	prev, exists := s.jobs[job.ID]
	if exists && prev.Equal(job) {
		return nil
	}
	s.jobs[job.ID] = job
	view := render.Job(job, s.now())
	s.views[job.ID] = view

	if !exists {
		return []Instruction{s.insert(job, view)}
	}

	h := s.handles[job.ID]
	ins := []Instruction{{Op: OpReplace, ID: job.ID, Handle: h, View: view}}

	if prev.Status.IsTerminal() != job.Status.IsTerminal() {
		s.remove(job.ID)
		before := s.place(job)
		ins = append(ins, Instruction{Op: OpMove, ID: job.ID, Handle: h, Before: before, View: view})
	}
	return ins
}

func (s *Store) insert(job models.Job, view render.View) Instruction {
	s.next++
	h := s.next
	s.handles[job.ID] = h
	before := s.place(job)
	return Instruction{Op: OpInsert, ID: job.ID, Handle: h, Before: before, View: view}
}

// place puts id into the visible order and returns the handle it now precedes.
// Terminal jobs go last; others go before the first terminal node.
func (s *Store) place(job models.Job) Handle {
	if job.Status.IsTerminal() {
		s.order = append(s.order, job.ID)
		return 0
	}

	i := slices.IndexFunc(s.order, func(id string) bool {
		return s.jobs[id].Status.IsTerminal()
	})
	if i < 0 {
		s.order = append(s.order, job.ID)
		return 0
	}
	first := s.handles[s.order[i]]
	s.order = slices.Insert(s.order, i, job.ID)
	return first
}

func (s *Store) remove(id string) {
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Get returns the job with the given id.
func (s *Store) Get(id string) (models.Job, bool) {
	job, ok := s.jobs[id]
	return job, ok
}

// Handle returns the render handle for id, or zero if none exists.
func (s *Store) Handle(id string) Handle {
	return s.handles[id]
}

// Len returns the number of known jobs.
func (s *Store) Len() int {
	return len(s.jobs)
}

// Order returns job ids in display order.
func (s *Store) Order() []string {
	return slices.Clone(s.order)
}

// Jobs returns all jobs in display order.
func (s *Store) Jobs() []models.Job {
	out := make([]models.Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}

// Completed returns completed jobs in display order.
func (s *Store) Completed() []models.Job {
	var out []models.Job
	for _, id := range s.order {
		if job := s.jobs[id]; job.Status == models.StatusCompleted {
			out = append(out, job)
		}
	}
	return out
}

// Views renders every job in display order.
func (s *Store) Views() []render.View {
	now := s.now()
	out := make([]render.View, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, render.Job(s.jobs[id], now))
	}
	return out
}
