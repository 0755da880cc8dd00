// Defines the Task process, which drives one unit of work through
// implementation, commit, review and remark fixing.

package devproc

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/reviewsim/reviewsim/sim"
)

// TaskState is the lifecycle state of a task. It only moves forward.
type TaskState string

const (
	TaskOpen        TaskState = "OPEN"
	TaskImplemented TaskState = "IMPLEMENTED"
	TaskFinished    TaskState = "FINISHED"
)

// nextTaskState maps each state to its only legal successor.
var nextTaskState = map[TaskState]TaskState{
	TaskOpen:        TaskImplemented,
	TaskImplemented: TaskFinished,
}

// TaskKind distinguishes story work from defect fixes.
type TaskKind string

const (
	KindStory    TaskKind = "story"
	KindBugfix   TaskKind = "bugfix"   // defect reported by a customer
	KindIssueFix TaskKind = "issuefix" // defect noticed by a developer
)

// taskPhase is the resume point of a task process.
type taskPhase int

const (
	phaseWaiting taskPhase = iota // queued or passive, no wake-up expected
	phaseStartImplementation
	phaseImplementing
	phaseCommitting
	phaseStartReview
	phaseReviewing
	phaseStartRemarkFix
	phaseFixingRemarks
)

// Task is a process for one unit of implementation, review and fix work.
type Task struct {
	sim.Proc
	m *Model

	id    string
	kind  TaskKind
	story *Story // owning story, story tasks only
	fixes *Issue // defect being fixed, fix tasks only

	state         TaskState
	phase         taskPhase
	queued        queueName
	implementer   *Developer
	worker        *Developer // developer busy with the current step
	prerequisites []*Task
	lurking       []*Issue // injected and not yet fixed, in injection order
	remarks       []*Issue
	reviewRounds  int

	committed   bool
	committedAt int64
	stepStart   int64
	stepLength  int64
	// blocked is the part of the current step spent suspended by global blockers.
	blocked int64
}

func newTask(m *Model, kind TaskKind) *Task {
	id := m.newTaskID()
	return &Task{
		Proc:  sim.NewProc(id, m.sched),
		m:     m,
		id:    id,
		kind:  kind,
		state: TaskOpen,
	}
}

// WorkID identifies the task in the source repository.
func (t *Task) WorkID() string { return t.id }

// ID returns the task identifier.
func (t *Task) ID() string { return t.id }

// Kind returns the task kind.
func (t *Task) Kind() TaskKind { return t.kind }

// State returns the lifecycle state.
func (t *Task) State() TaskState { return t.state }

// Implementer returns the developer who implemented the task, or nil.
func (t *Task) Implementer() *Developer { return t.implementer }

// Prerequisites returns the tasks this one depends on.
func (t *Task) Prerequisites() []*Task { return t.prerequisites }

// Committed reports whether the task's changes are integrated.
func (t *Task) Committed() bool { return t.committed }

// ReviewRounds returns how many rounds of remarks the task went through.
func (t *Task) ReviewRounds() int { return t.reviewRounds }

// LurkingIssues returns the injected issues not yet fixed.
func (t *Task) LurkingIssues() []*Issue { return t.lurking }

func (t *Task) setState(next TaskState) {
	if nextTaskState[t.state] != next {
		panic(fmt.Sprintf("%s: illegal state transition %s -> %s", t.id, t.state, next))
	}
	logrus.Debugf("[tick %07d] %s %s -> %s", t.Now(), t.id, t.state, next)
	t.state = next
}

// === Hand-over from developers ===

func (t *Task) beginImplementation(d *Developer) {
	if t.implementer != nil {
		panic(fmt.Sprintf("%s: implementer already set to %s", t.id, t.implementer.id))
	}
	if t.state != TaskOpen {
		panic(fmt.Sprintf("%s: cannot implement a task in state %s", t.id, t.state))
	}
	t.implementer = d
	t.handOver(d, phaseStartImplementation)
}

func (t *Task) beginReview(d *Developer) {
	if d == t.implementer {
		panic(fmt.Sprintf("%s: %s may not review own work", t.id, d.id))
	}
	t.handOver(d, phaseStartReview)
}

func (t *Task) beginRemarkFix(d *Developer) {
	if d != t.implementer {
		panic(fmt.Sprintf("%s: remarks go back to the implementer, not %s", t.id, d.id))
	}
	t.handOver(d, phaseStartRemarkFix)
}

func (t *Task) handOver(d *Developer, phase taskPhase) {
	if t.worker != nil {
		panic(fmt.Sprintf("%s: already worked on by %s", t.id, t.worker.id))
	}
	t.worker = d
	t.phase = phase
	t.m.sched.Activate(t, 0)
}

// releaseWorker ends the current step and sends the developer back to the Board.
// Ticks already counted as blocked are left out of a.
func (t *Task) releaseWorker(a Activity) {
	t.m.results.addDuration(a, t.Now()-t.stepStart-t.blocked)
	t.blocked = 0
	d := t.worker
	t.worker = nil
	t.m.release(d)
}

// === Process body ===

// Resume advances the task from its current resume point.
func (t *Task) Resume() {
	switch t.phase {
	case phaseStartImplementation:
		t.m.repo.StartWork(t)
		t.m.implementing.push(t)
		t.stepStart = t.Now()
		t.blocked = 0
		t.stepLength = t.implementationTime()
		t.phase = phaseImplementing
		t.Hold(t.stepLength)

	case phaseImplementing:
		t.m.implementing.remove(t)
		t.setState(TaskImplemented)
		t.injectIssues()
		if t.kind == KindStory {
			t.releaseWorker(ActivityImplementing)
		} else {
			t.releaseWorker(ActivityFixingIssues)
		}
		// dependents may become eligible in pre-commit mode
		t.m.board.wakeIdle()
		if t.m.cfg.Policy == PostCommit {
			t.commit()
			return
		}
		t.phase = phaseWaiting
		t.m.board.addReview(t)
		t.Passivate()

	case phaseCommitting:
		t.commit()

	case phaseStartReview:
		t.stepStart = t.Now()
		t.phase = phaseReviewing
		t.Hold(t.m.streams.reviewTime.Ticks())

	case phaseReviewing:
		t.review()

	case phaseStartRemarkFix:
		t.stepStart = t.Now()
		t.phase = phaseFixingRemarks
		t.Hold(t.remarkFixTime())

	case phaseFixingRemarks:
		for _, is := range t.remarks {
			is.fixByReview()
			t.dropLurking(is)
		}
		t.remarks = nil
		t.reviewRounds++
		t.releaseWorker(ActivityFixingRemarks)
		t.phase = phaseWaiting
		t.m.board.addReview(t)
		t.Passivate()

	default:
		panic(fmt.Sprintf("%s resumed in unexpected phase %d", t.id, t.phase))
	}
}

func (t *Task) implementationTime() int64 {
	if t.kind == KindStory {
		return t.m.streams.implementationTime.Ticks()
	}
	return t.m.streams.bugfixTime.Ticks()
}

func (t *Task) remarkFixTime() int64 {
	return t.m.streams.remarkFixTime.Ticks() * int64(len(t.remarks))
}

// injectIssues attaches floor(skill) latent issues plus one more with
// probability frac(skill), where skill is the implementer's injection rate.
func (t *Task) injectIssues() {
	skill := t.implementer.implementationSkill
	n := int(math.Floor(skill))
	if t.m.streams.issueCount.DrawWith(skill - float64(n)) {
		n++
	}
	for i := 0; i < n; i++ {
		is := newIssue(t.m, t, t.m.sampleIssueKind())
		t.lurking = append(t.lurking, is)
		t.m.results.IssuesInjected++
	}
	if n > 0 {
		logrus.Debugf("[tick %07d] %s injected %d latent issue(s)", t.Now(), t.id, n)
	}
}

// review evaluates every unfixed, unobserved latent issue against the
// reviewer's detection skill.
func (t *Task) review() {
	reviewer := t.worker
	for _, is := range t.lurking {
		if is.fixed || is.observed {
			continue
		}
		if t.m.streams.detection.DrawWith(reviewer.reviewSkill) {
			t.remarks = append(t.remarks, is)
		}
	}
	t.releaseWorker(ActivityReviewing)
	logrus.Debugf("[tick %07d] %s review pass %d by %s: %d remark(s)",
		t.Now(), t.id, t.reviewRounds+1, reviewer.id, len(t.remarks))

	if len(t.remarks) > 0 {
		t.phase = phaseWaiting
		t.m.board.addRemarks(t)
		t.Passivate()
		return
	}
	if t.m.cfg.Policy == PreCommit {
		t.commit()
		return
	}
	t.finish()
}

// commit integrates the task. A sampled conflict restarts the work window and
// retries after a conflict-resolution hold.
func (t *Task) commit() {
	if !t.m.repo.TryCommit(t) {
		t.m.repo.RestartWork(t)
		d := t.m.streams.conflictResolutionTime.Ticks()
		t.m.results.addDuration(ActivityResolvingConflicts, d)
		t.phase = phaseCommitting
		t.Hold(d)
		return
	}
	t.committed = true
	t.committedAt = t.Now()
	logrus.Debugf("[tick %07d] %s committed", t.Now(), t.id)
	for _, is := range t.lurking {
		is.arm()
	}
	if t.fixes != nil {
		t.fixes.fixByTask()
	}
	// dependents may become eligible in post-commit mode
	t.m.board.wakeIdle()

	if t.m.cfg.Policy == PreCommit {
		t.finish()
		return
	}
	t.phase = phaseWaiting
	t.m.board.addReview(t)
	t.Passivate()
}

// finish marks the task done; the process terminates by returning.
func (t *Task) finish() {
	t.setState(TaskFinished)
	t.phase = phaseWaiting
	t.m.results.TasksFinished++
	t.m.results.ReviewRounds[t.reviewRounds]++
	switch t.kind {
	case KindStory:
		t.story.taskFinished(t)
	default:
		t.m.results.FixTasksFinished++
	}
}

func (t *Task) dropLurking(is *Issue) {
	for i, x := range t.lurking {
		if x == is {
			t.lurking = append(t.lurking[:i], t.lurking[i+1:]...)
			return
		}
	}
}
