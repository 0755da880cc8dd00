package devproc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reviewsim/reviewsim/sim"
	"github.com/reviewsim/reviewsim/sim/trace"
	"github.com/reviewsim/reviewsim/sim/vcs"
)

// Model wires the scheduler, the Board, the source repository and the
// developer processes of one run. The only ways in are a Config and a stop
// condition; the only way out is the Results surface.
type Model struct {
	cfg     Config
	sched   *sim.Scheduler
	rng     *sim.PartitionedRNG
	streams *streams
	board   *Board
	repo    *vcs.Repository
	trace   *trace.SimulationTrace
	results *Results

	developers []*Developer
	// implementing holds tasks currently in their implementation hold, in start order.
	implementing fifo[*Task]
	openStories  int

	nextTaskID  int
	nextStoryID int
	nextIssueID int
}

// NewModel validates cfg and builds a model ready to run. st may be nil.
func NewModel(cfg Config, st *trace.SimulationTrace) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	streams, err := newStreams(&cfg, rng)
	if err != nil {
		return nil, err
	}
	sched := sim.NewScheduler()
	m := &Model{
		cfg:     cfg,
		sched:   sched,
		rng:     rng,
		streams: streams,
		trace:   st,
		results: NewResults(cfg.Policy, cfg.Seed),
	}
	m.board = newBoard(m)
	m.repo = vcs.NewRepository(sched, streams.conflict, st)

	for i := 0; i < cfg.Developers; i++ {
		d := newDeveloper(m, i)
		m.developers = append(m.developers, d)
		sched.Activate(d, 0)
	}
	logrus.Debugf("model ready: policy=%s developers=%d seed=%d", cfg.Policy, cfg.Developers, cfg.Seed)
	return m, nil
}

// Run drives the simulation until stop holds or no process is pending.
func (m *Model) Run(stop sim.StopCondition) *Results {
	m.sched.Run(stop)
	return m.finish()
}

// RunUntil drives the simulation up to horizon ticks.
func (m *Model) RunUntil(horizon int64) *Results {
	m.sched.RunUntil(horizon)
	return m.finish()
}

func (m *Model) finish() *Results {
	m.results.SimEndedTime = m.sched.Now()
	m.results.Commits = m.repo.Commits
	m.results.Conflicts = m.repo.Conflicts
	logrus.Infof("[tick %07d] simulation ended: %d/%d stories finished", m.sched.Now(),
		m.results.FinishedStories, m.results.StartedStories)
	return m.results
}

// Results returns the live result surface.
func (m *Model) Results() *Results { return m.results }

// Now returns the simulation clock.
func (m *Model) Now() int64 { return m.sched.Now() }

// Config returns the configuration the model was built with.
func (m *Model) Config() Config { return m.cfg }

// Developers returns the developer processes in creation order.
func (m *Model) Developers() []*Developer { return m.developers }

// Board returns the dispatch board.
func (m *Model) Board() *Board { return m.board }

// Repository returns the commit-conflict ledger.
func (m *Model) Repository() *vcs.Repository { return m.repo }

// canStartStory reports whether the work-in-progress limit admits another story.
func (m *Model) canStartStory() bool {
	return m.cfg.MaxOpenStories == 0 || m.openStories < m.cfg.MaxOpenStories
}

// release hands a developer back to the Board loop.
func (m *Model) release(d *Developer) {
	if d == nil {
		panic("release: nil developer")
	}
	m.sched.Activate(d, 0)
}

func (m *Model) newTaskID() string {
	m.nextTaskID++
	return fmt.Sprintf("task_%d", m.nextTaskID)
}

func (m *Model) newStoryID() string {
	m.nextStoryID++
	return fmt.Sprintf("story_%d", m.nextStoryID)
}

func (m *Model) newIssueID() string {
	m.nextIssueID++
	return fmt.Sprintf("issue_%d", m.nextIssueID)
}

// prerequisiteMet reports whether t has reached the point dependents wait for
// under the active policy.
func (m *Model) prerequisiteMet(t *Task) bool {
	if m.cfg.Policy == PostCommit {
		return t.committed
	}
	return t.state != TaskOpen
}

// suspendImplementations delays every task in its implementation hold by d ticks.
// The pending wake-up is replaced, never stacked.
func (m *Model) suspendImplementations(cause *Issue, d int64) {
	now := m.sched.Now()
	for _, t := range m.implementing.items {
		at, ok := m.sched.PendingAt(t)
		if !ok {
			continue
		}
		remaining := at - now
		m.sched.CancelPending(t)
		m.sched.ScheduleAfter(t, remaining+d)
		t.blocked += d
		m.results.addDuration(ActivityBlocked, d)
		logrus.Debugf("[tick %07d] %s blocks %s for %d ticks", now, cause.id, t.id, d)
		m.trace.RecordSuspension(trace.SuspensionRecord{Clock: now, IssueID: cause.id, TaskID: t.id, Delay: d})
	}
}
