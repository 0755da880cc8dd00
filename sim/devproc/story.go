package devproc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reviewsim/reviewsim/sim"
)

type storyPhase int

const (
	storyCreated storyPhase = iota
	storyPlanning
	storyPlanned
)

// Story is a user story. Planning decomposes it into a dependency graph of
// story tasks drawn from a configured template.
type Story struct {
	sim.Proc
	m *Model

	id        string
	points    int
	graph     TaskGraph
	startTime int64
	phase     storyPhase
	queued    bool

	planners []*Developer
	joinedAt []int64
	tasks    []*Task
	finished int
}

// newStory starts a story and queues it for additional planners.
func newStory(m *Model) *Story {
	id := m.newStoryID()
	graph := m.cfg.TaskGraphs[m.streams.taskGraph.Intn(len(m.cfg.TaskGraphs))]
	s := &Story{
		Proc:      sim.NewProc(id, m.sched),
		m:         m,
		id:        id,
		points:    graph.StoryPoints,
		graph:     graph,
		startTime: m.sched.Now(),
	}
	m.results.StartedStories++
	m.openStories++
	logrus.Debugf("[tick %07d] %s started: %d points, %d tasks", s.startTime, id, s.points, len(graph.Tasks))
	m.sched.Activate(s, 0)
	if m.cfg.MaxPlanners > 1 {
		m.board.addPlanning(s)
	}
	return s
}

// ID returns the story identifier.
func (s *Story) ID() string { return s.id }

// Points returns the story points credited when the story finishes.
func (s *Story) Points() int { return s.points }

// Tasks returns the story tasks created at planning, in creation order.
func (s *Story) Tasks() []*Task { return s.tasks }

// AllTasksFinished reports whether planning is over and every task is FINISHED.
func (s *Story) AllTasksFinished() bool {
	return s.phase == storyPlanned && s.finished == len(s.tasks)
}

func (s *Story) canAcceptPlanner() bool {
	return s.phase != storyPlanned && len(s.planners) < s.m.cfg.MaxPlanners
}

func (s *Story) addPlanner(d *Developer) {
	if !s.canAcceptPlanner() {
		panic(fmt.Sprintf("%s cannot take planner %s", s.id, d.id))
	}
	s.planners = append(s.planners, d)
	s.joinedAt = append(s.joinedAt, s.m.sched.Now())
}

// Resume runs the planning session, then decomposes the story.
func (s *Story) Resume() {
	switch s.phase {
	case storyCreated:
		s.phase = storyPlanning
		s.Hold(s.m.streams.planningTime.Ticks())
	case storyPlanning:
		s.plan()
	default:
		panic(fmt.Sprintf("%s resumed after planning", s.id))
	}
}

func (s *Story) plan() {
	s.phase = storyPlanned
	s.m.board.removePlanning(s)
	now := s.Now()

	for i, prereqs := range s.graph.Tasks {
		t := newTask(s.m, KindStory)
		t.story = s
		for _, p := range prereqs {
			t.prerequisites = append(t.prerequisites, s.tasks[p])
		}
		s.tasks = append(s.tasks, t)
		logrus.Tracef("[tick %07d] %s task %d -> %s, prerequisites %v", now, s.id, i, t.id, prereqs)
	}
	for _, t := range s.tasks {
		s.m.board.addStoryTask(t)
	}
	logrus.Debugf("[tick %07d] %s planned by %d developer(s)", now, s.id, len(s.planners))
	for i, d := range s.planners {
		s.m.results.addDuration(ActivityPlanning, now-s.joinedAt[i])
		s.m.release(d)
	}
	s.planners = nil
	s.joinedAt = nil
}

func (s *Story) taskFinished(t *Task) {
	if t.story != s {
		panic(fmt.Sprintf("%s notified by foreign task %s", s.id, t.id))
	}
	s.finished++
	if !s.AllTasksFinished() {
		return
	}
	now := s.m.sched.Now()
	s.m.results.storyFinished(now, s)
	s.m.openStories--
	logrus.Debugf("[tick %07d] %s finished after %d ticks", now, s.id, now-s.startTime)
	s.m.board.wakeIdle()
}
