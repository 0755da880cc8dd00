package devproc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reviewsim/reviewsim/sim/trace"
)

// queueName identifies one of the Board's queues.
type queueName string

const (
	queueNone       queueName = ""
	queuePlanning   queueName = "planning"
	queueStoryTasks queueName = "story_tasks"
	queueFixTasks   queueName = "fix_tasks"
	queueReview     queueName = "review"
	queueRemarks    queueName = "remarks"
	sourceNewStory  queueName = "new_story"
)

// assignment is a unit of work the Board handed to a developer.
type assignment struct {
	source queueName
	task   *Task
	story  *Story
}

// ItemID names the task or story assigned.
func (a *assignment) ItemID() string {
	if a.task != nil {
		return a.task.id
	}
	return a.story.id
}

// start hands the work over; the developer passivates right after.
func (a *assignment) start(d *Developer) {
	switch a.source {
	case queueRemarks:
		a.task.beginRemarkFix(d)
	case queueReview:
		a.task.beginReview(d)
	case queueFixTasks, queueStoryTasks:
		a.task.beginImplementation(d)
	case queuePlanning, sourceNewStory:
		a.story.addPlanner(d)
	default:
		panic(fmt.Sprintf("assignment from unknown source %q", a.source))
	}
}

// Board is the shared dispatcher of work queues.
// A task sits in at most one queue at any instant.
type Board struct {
	m *Model

	planning   fifo[*Story]
	storyTasks fifo[*Task]
	fixTasks   fifo[*Task]
	review     fifo[*Task]
	remarks    fifo[*Task]

	idle []*Developer
}

func newBoard(m *Model) *Board {
	return &Board{m: m}
}

// QueueLengths reports the size of every queue, keyed by name.
func (b *Board) QueueLengths() map[string]int {
	return map[string]int{
		string(queuePlanning):   b.planning.len(),
		string(queueStoryTasks): b.storyTasks.len(),
		string(queueFixTasks):   b.fixTasks.len(),
		string(queueReview):     b.review.len(),
		string(queueRemarks):    b.remarks.len(),
	}
}

// IdleDevelopers returns how many developers wait for work.
func (b *Board) IdleDevelopers() int {
	return len(b.idle)
}

// NextWork returns the first eligible work for d, scanning in priority order:
// own remarks, others' reviews, fix tasks, eligible story tasks, planning
// stories with a free seat, and finally a new story. The match is removed
// from its queue. Returns nil when nothing is eligible.
func (b *Board) NextWork(d *Developer) *assignment {
	if t, ok := b.remarks.removeFirst(func(t *Task) bool { return t.implementer == d }); ok {
		return b.dispatch(d, &assignment{source: queueRemarks, task: t})
	}
	if t, ok := b.review.removeFirst(func(t *Task) bool { return t.implementer != d }); ok {
		return b.dispatch(d, &assignment{source: queueReview, task: t})
	}
	if t, ok := b.fixTasks.removeFirst(func(*Task) bool { return true }); ok {
		return b.dispatch(d, &assignment{source: queueFixTasks, task: t})
	}
	if t, ok := b.storyTasks.removeFirst(func(t *Task) bool { return b.eligible(d, t) }); ok {
		return b.dispatch(d, &assignment{source: queueStoryTasks, task: t})
	}
	if s, ok := b.planning.first(func(s *Story) bool { return s.canAcceptPlanner() }); ok {
		if len(s.planners)+1 >= b.m.cfg.MaxPlanners {
			b.planning.remove(s)
			s.queued = false
		}
		return b.dispatch(d, &assignment{source: queuePlanning, story: s})
	}
	if b.m.canStartStory() {
		s := newStory(b.m)
		return b.dispatch(d, &assignment{source: sourceNewStory, story: s})
	}
	return nil
}

func (b *Board) dispatch(d *Developer, a *assignment) *assignment {
	if a.task != nil {
		a.task.queued = queueNone
	}
	logrus.Debugf("[tick %07d] %s takes %s from %s", b.m.Now(), d.id, a.ItemID(), a.source)
	b.m.trace.RecordDispatch(trace.DispatchRecord{
		Clock:     b.m.Now(),
		Developer: d.id,
		Item:      a.ItemID(),
		Source:    string(a.source),
	})
	return a
}

// eligible reports whether every prerequisite of t has reached the point the
// active policy requires; ineligible tasks are traced and skipped.
func (b *Board) eligible(d *Developer, t *Task) bool {
	var waiting []string
	for _, p := range t.prerequisites {
		if !b.m.prerequisiteMet(p) {
			waiting = append(waiting, p.id)
		}
	}
	if len(waiting) == 0 {
		return true
	}
	logrus.Tracef("[tick %07d] %s skips %s, waiting on %v", b.m.Now(), d.id, t.id, waiting)
	b.m.trace.RecordSkip(trace.SkipRecord{Clock: b.m.Now(), Developer: d.id, TaskID: t.id, Waiting: waiting})
	return false
}

func (b *Board) enqueue(q *fifo[*Task], name queueName, t *Task) {
	if t.queued != queueNone {
		panic(fmt.Sprintf("enqueue: %s is already in queue %s, cannot join %s", t.id, t.queued, name))
	}
	t.queued = name
	q.push(t)
	b.wakeIdle()
}

func (b *Board) addStoryTask(t *Task) { b.enqueue(&b.storyTasks, queueStoryTasks, t) }
func (b *Board) addFixTask(t *Task)   { b.enqueue(&b.fixTasks, queueFixTasks, t) }
func (b *Board) addReview(t *Task)    { b.enqueue(&b.review, queueReview, t) }
func (b *Board) addRemarks(t *Task)   { b.enqueue(&b.remarks, queueRemarks, t) }

func (b *Board) addPlanning(s *Story) {
	if s.queued {
		panic(fmt.Sprintf("addPlanning: %s is already queued", s.id))
	}
	s.queued = true
	b.planning.push(s)
	b.wakeIdle()
}

func (b *Board) removePlanning(s *Story) {
	if s.queued {
		b.planning.remove(s)
		s.queued = false
	}
}

// addIdle registers d as waiting for work; d passivates right after.
func (b *Board) addIdle(d *Developer) {
	b.idle = append(b.idle, d)
}

// wakeIdle re-activates every idle developer, in the order they went idle.
// Called whenever new work appears or a prerequisite advances.
func (b *Board) wakeIdle() {
	if len(b.idle) == 0 {
		return
	}
	idle := b.idle
	b.idle = nil
	for _, d := range idle {
		b.m.sched.Activate(d, 0)
	}
}
