package devproc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reviewsim/reviewsim/sim"
)

// IssueKind names an issue variant.
type IssueKind string

const (
	IssueNormal        IssueKind = "normal"
	IssueDeveloperOnly IssueKind = "developer_only"
	IssueGlobalBlocker IssueKind = "global_blocker"
)

// issueKind is the per-variant behaviour of an issue.
type issueKind interface {
	name() IssueKind
	// customerVisible reports whether customers can ever notice the issue.
	customerVisible() bool
	// onDeveloperVisible runs once when a developer first notices the issue.
	onDeveloperVisible(is *Issue)
}

type normalIssue struct{}

func (normalIssue) name() IssueKind           { return IssueNormal }
func (normalIssue) customerVisible() bool     { return true }
func (normalIssue) onDeveloperVisible(*Issue) {}

type developerOnlyIssue struct{}

func (developerOnlyIssue) name() IssueKind           { return IssueDeveloperOnly }
func (developerOnlyIssue) customerVisible() bool     { return false }
func (developerOnlyIssue) onDeveloperVisible(*Issue) {}

// globalBlocker breaks the shared build: every task in implementation is
// held up until the team works around it.
type globalBlocker struct{}

func (globalBlocker) name() IssueKind       { return IssueGlobalBlocker }
func (globalBlocker) customerVisible() bool { return false }
func (globalBlocker) onDeveloperVisible(is *Issue) {
	is.m.results.GlobalBlockersObserved++
	is.m.suspendImplementations(is, is.m.streams.globalSuspendTime.Ticks())
}

// sampleIssueKind draws u once: u < global_defect_rate is a global blocker,
// u < global_defect_rate + developer_only_share is developer-only.
func (m *Model) sampleIssueKind() issueKind {
	u := m.streams.issueKind.Float64()
	switch {
	case u < m.cfg.GlobalDefectRate:
		return globalBlocker{}
	case u < m.cfg.GlobalDefectRate+m.cfg.DeveloperOnlyShare:
		return developerOnlyIssue{}
	default:
		return normalIssue{}
	}
}

// Issue is a latent defect injected by an implementation. Once armed at
// commit it runs two activation timers; the first to fire makes it observed.
type Issue struct {
	sim.Proc
	m *Model

	id    string
	task  *Task
	kind  issueKind
	fixed bool
	// observed is set once a developer or customer noticed the issue.
	observed bool
	fixTask  *Task

	armed         bool
	developerAt   int64
	customerAt    int64
	developerDone bool
	customerDone  bool
}

func newIssue(m *Model, t *Task, kind issueKind) *Issue {
	id := m.newIssueID()
	return &Issue{
		Proc: sim.NewProc(id, m.sched),
		m:    m,
		id:   id,
		task: t,
		kind: kind,
	}
}

// ID returns the issue identifier.
func (is *Issue) ID() string { return is.id }

// Kind returns the issue variant.
func (is *Issue) Kind() IssueKind { return is.kind.name() }

// Task returns the task that injected the issue.
func (is *Issue) Task() *Task { return is.task }

// Fixed reports whether the issue was fixed by review or by a fix task.
func (is *Issue) Fixed() bool { return is.fixed }

// Observed reports whether a developer or customer noticed the issue.
func (is *Issue) Observed() bool { return is.observed }

// arm starts the activation timers; called when the owning task commits.
func (is *Issue) arm() {
	if is.fixed || is.armed {
		return
	}
	now := is.m.sched.Now()
	is.armed = true
	is.developerAt = now + is.m.streams.developerActivation.Ticks()
	if is.kind.customerVisible() {
		is.customerAt = now + is.m.streams.customerActivation.Ticks()
	} else {
		is.customerDone = true
	}
	is.m.sched.Activate(is, is.nextWake()-now)
}

func (is *Issue) nextWake() int64 {
	switch {
	case is.developerDone:
		return is.customerAt
	case is.customerDone:
		return is.developerAt
	default:
		return min(is.developerAt, is.customerAt)
	}
}

// Resume fires every timer due now. A fixed issue never fires.
func (is *Issue) Resume() {
	if is.fixed {
		return
	}
	now := is.Now()
	if !is.developerDone && is.developerAt <= now {
		is.developerDone = true
		is.developerVisible()
	}
	if !is.customerDone && is.customerAt <= now {
		is.customerDone = true
		is.customerVisibleNow()
	}
	if is.fixed || (is.developerDone && is.customerDone) {
		return
	}
	is.Hold(is.nextWake() - now)
}

func (is *Issue) developerVisible() {
	is.m.results.IssuesFoundByDevelopers++
	is.observed = true
	logrus.Debugf("[tick %07d] %s (%s) noticed by a developer", is.Now(), is.id, is.kind.name())
	is.kind.onDeveloperVisible(is)
	is.queueFix(KindIssueFix)
}

func (is *Issue) customerVisibleNow() {
	is.m.results.IssuesFoundByCustomers++
	is.observed = true
	logrus.Debugf("[tick %07d] %s reported by a customer", is.Now(), is.id)
	is.queueFix(KindBugfix)
}

func (is *Issue) queueFix(kind TaskKind) {
	if is.fixTask != nil {
		return
	}
	t := newTask(is.m, kind)
	t.fixes = is
	is.fixTask = t
	is.m.board.addFixTask(t)
}

// fixByTask marks the issue fixed when its fix task commits.
func (is *Issue) fixByTask() {
	if !is.observed {
		panic(fmt.Sprintf("%s fixed by task before anyone observed it", is.id))
	}
	if is.fixed {
		return
	}
	is.fixed = true
	is.m.results.IssuesFixedByTask++
	is.task.dropLurking(is)
}

// fixByReview marks the issue fixed through a review remark.
func (is *Issue) fixByReview() {
	if is.fixed {
		return
	}
	is.fixed = true
	is.m.results.IssuesFixedInReview++
}
