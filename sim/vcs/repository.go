// Package vcs models the shared codebase as a commit-conflict ledger.
//
// The ledger remembers the start of every work window still open and the
// commits that some open window could still conflict with. A commit that is
// older than every open window's start can no longer conflict and is pruned,
// so the ledger stays bounded by the live working set rather than history.
package vcs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reviewsim/reviewsim/sim/trace"
)

// Work is anything that opens a work window and commits it.
type Work interface {
	WorkID() string
}

// Clock supplies the current simulation time.
type Clock interface {
	Now() int64
}

// ConflictSampler decides whether two overlapping windows conflict.
type ConflictSampler interface {
	Draw() bool
}

type commit struct {
	work Work
	at   int64
}

// Repository is the commit-conflict ledger.
//
// Thread-safety: NOT thread-safe; mutated only by the running process.
type Repository struct {
	clock    Clock
	conflict ConflictSampler
	trace    *trace.SimulationTrace

	started map[Work]int64
	commits []commit // ordered by commit time
	index   map[Work]int

	// Commits counts accepted commits; Conflicts counts failed TryCommit calls.
	Commits   int
	Conflicts int
}

// NewRepository creates an empty ledger. st may be nil.
func NewRepository(clock Clock, conflict ConflictSampler, st *trace.SimulationTrace) *Repository {
	if clock == nil || conflict == nil {
		panic("NewRepository: clock and conflict sampler must not be nil")
	}
	return &Repository{
		clock:    clock,
		conflict: conflict,
		trace:    st,
		started:  make(map[Work]int64),
		index:    make(map[Work]int),
	}
}

// StartWork opens w's work window at the current time.
func (r *Repository) StartWork(w Work) {
	if _, ok := r.started[w]; ok {
		panic(fmt.Sprintf("StartWork: %s is already in progress", w.WorkID()))
	}
	if _, ok := r.index[w]; ok {
		panic(fmt.Sprintf("StartWork: %s still holds an unexpired commit", w.WorkID()))
	}
	r.started[w] = r.clock.Now()
}

// RestartWork moves w's window start to the current time, after a failed commit.
func (r *Repository) RestartWork(w Work) {
	if _, ok := r.started[w]; !ok {
		panic(fmt.Sprintf("RestartWork: %s has no recorded start", w.WorkID()))
	}
	r.started[w] = r.clock.Now()
	r.prune()
}

// InProgress reports whether w has an open window.
func (r *Repository) InProgress(w Work) bool {
	_, ok := r.started[w]
	return ok
}

// TryCommit attempts to integrate w. Every commit made after w's window opened
// is a conflict candidate; the first sampled conflict fails the attempt and
// the caller must RestartWork before retrying.
func (r *Repository) TryCommit(w Work) bool {
	start, ok := r.started[w]
	if !ok {
		panic(fmt.Sprintf("TryCommit: %s has no recorded start", w.WorkID()))
	}
	now := r.clock.Now()
	for _, c := range r.commits {
		if c.at <= start {
			continue
		}
		if r.conflict.Draw() {
			r.Conflicts++
			logrus.Debugf("[tick %07d] conflict: %s (started %d) vs %s (committed %d)",
				now, w.WorkID(), start, c.work.WorkID(), c.at)
			r.trace.RecordConflict(trace.ConflictRecord{
				Clock:     now,
				WorkID:    w.WorkID(),
				AgainstID: c.work.WorkID(),
				StartedAt: start,
				CommitAt:  c.at,
			})
			return false
		}
	}

	delete(r.started, w)
	r.commits = append(r.commits, commit{work: w, at: now})
	r.index[w] = len(r.commits) - 1
	r.Commits++
	r.prune()
	return true
}

// prune drops every commit older than the earliest open window.
func (r *Repository) prune() {
	keepFrom := len(r.commits)
	if len(r.started) > 0 {
		minStart := int64(0)
		first := true
		for _, s := range r.started {
			if first || s < minStart {
				minStart, first = s, false
			}
		}
		keepFrom = 0
		for keepFrom < len(r.commits) && r.commits[keepFrom].at < minStart {
			keepFrom++
		}
	}
	if keepFrom == 0 {
		return
	}
	r.commits = append(r.commits[:0:0], r.commits[keepFrom:]...)
	r.index = make(map[Work]int, len(r.commits))
	for i, c := range r.commits {
		r.index[c.work] = i
	}
}

// Len returns the number of ledger entries (open windows plus retained commits).
func (r *Repository) Len() int {
	return len(r.started) + len(r.commits)
}

// OpenWindows returns the number of works in progress.
func (r *Repository) OpenWindows() int {
	return len(r.started)
}

// RetainedCommits returns the number of commits still able to conflict.
func (r *Repository) RetainedCommits() int {
	return len(r.commits)
}
