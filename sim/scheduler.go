// sim/scheduler.go
package sim

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"
)

// wakeup is a pending resumption of a process.
type wakeup struct {
	at    int64   // simulation time of the resumption (in ticks)
	seq   uint64  // insertion sequence, tie-breaker for simultaneous wake-ups
	proc  Process // process to resume
	index int     // position in the heap, maintained by wakeupQueue
}

// wakeupQueue implements heap.Interface and orders wake-ups by (time, insertion sequence).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-PriorityQueue
type wakeupQueue []*wakeup

func (q wakeupQueue) Len() int { return len(q) }

func (q wakeupQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q wakeupQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *wakeupQueue) Push(x any) {
	w := x.(*wakeup)
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *wakeupQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[0 : n-1]
	return item
}

// StopCondition is evaluated before each wake-up with the time that wake-up is due.
// Returning true ends Scheduler.Run without executing it.
type StopCondition func(next int64) bool

// UntilTime stops the simulation once the next wake-up lies beyond horizon.
func UntilTime(horizon int64) StopCondition {
	return func(next int64) bool { return next > horizon }
}

// Scheduler owns simulated time and the pending wake-up queue.
// It resumes exactly one process at a time; code between two suspension
// points of a process is therefore atomic with respect to all others.
//
// Thread-safety: NOT thread-safe. Must be driven from a single goroutine.
type Scheduler struct {
	clock   int64
	queue   wakeupQueue
	nextSeq uint64
	current Process

	// Resumptions counts how many times a process was resumed.
	Resumptions int64
}

// NewScheduler creates a scheduler with its clock at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{queue: make(wakeupQueue, 0)}
}

// Now returns the current simulation time.
func (s *Scheduler) Now() int64 {
	return s.clock
}

// Pending returns the number of queued wake-ups.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Current returns the process being resumed, or nil between resumptions.
func (s *Scheduler) Current() Process {
	return s.current
}

// ScheduleAfter queues a wake-up for p delay ticks in the future.
// A process holds at most one pending wake-up; replacing one goes through
// CancelPending or Activate.
func (s *Scheduler) ScheduleAfter(p Process, delay int64) {
	if delay < 0 {
		panic(fmt.Sprintf("ScheduleAfter: negative delay %d for %s", delay, p.proc().name))
	}
	ps := p.proc()
	if ps.wake != nil {
		panic(fmt.Sprintf("ScheduleAfter: %s already has a wake-up pending at %d", ps.name, ps.wake.at))
	}
	ps.bind(s)
	s.nextSeq++
	w := &wakeup{at: s.clock + delay, seq: s.nextSeq, proc: p}
	heap.Push(&s.queue, w)
	ps.wake = w
	ps.state = ProcessScheduled
}

// CancelPending removes the queued wake-up of p, if any, and reports whether one existed.
// The process is left passive.
func (s *Scheduler) CancelPending(p Process) bool {
	ps := p.proc()
	if ps.wake == nil {
		return false
	}
	heap.Remove(&s.queue, ps.wake.index)
	ps.wake = nil
	if ps.state == ProcessScheduled {
		ps.state = ProcessPassive
	}
	return true
}

// PendingAt returns the time of p's queued wake-up.
func (s *Scheduler) PendingAt(p Process) (int64, bool) {
	ps := p.proc()
	if ps.wake == nil {
		return 0, false
	}
	return ps.wake.at, true
}

// Activate schedules a suspended process to resume after delay ticks,
// replacing any wake-up already pending for it.
// Activating the running process or a terminated one is a modeling error.
func (s *Scheduler) Activate(p Process, delay int64) {
	ps := p.proc()
	switch ps.state {
	case ProcessRunning:
		panic(fmt.Sprintf("Activate: %s is running, not suspended", ps.name))
	case ProcessTerminated:
		panic(fmt.Sprintf("Activate: %s has terminated", ps.name))
	}
	s.CancelPending(p)
	s.ScheduleAfter(p, delay)
}

// Run resumes processes in wake-up order until stop holds or no wake-up remains.
// A nil stop runs until the queue drains.
func (s *Scheduler) Run(stop StopCondition) {
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if stop != nil && stop(next.at) {
			break
		}
		heap.Pop(&s.queue)

		// Clock monotonicity
		if next.at < s.clock {
			panic(fmt.Sprintf("clock went backwards: %d < %d", next.at, s.clock))
		}
		s.clock = next.at
		s.resume(next)
	}
	logrus.Debugf("[tick %07d] scheduler stopped, %d wake-ups pending", s.clock, s.queue.Len())
}

// RunUntil runs until horizon and leaves the clock at horizon.
func (s *Scheduler) RunUntil(horizon int64) {
	s.Run(UntilTime(horizon))
	if s.clock < horizon {
		s.clock = horizon
	}
}

func (s *Scheduler) resume(w *wakeup) {
	p := w.proc
	ps := p.proc()
	ps.wake = nil
	ps.state = ProcessRunning
	s.current = p
	s.Resumptions++
	logrus.Tracef("[tick %07d] resume %s", s.clock, ps.name)

	p.Resume()

	s.current = nil
	if ps.state == ProcessRunning {
		// Returned without suspending.
		ps.state = ProcessTerminated
		logrus.Tracef("[tick %07d] %s terminated", s.clock, ps.name)
	}
}
