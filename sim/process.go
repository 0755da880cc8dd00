package sim

import "fmt"

// ProcessState is the scheduling state of a process.
type ProcessState string

const (
	ProcessCreated    ProcessState = "created"    // never scheduled
	ProcessScheduled  ProcessState = "scheduled"  // suspended with a wake-up pending
	ProcessPassive    ProcessState = "passive"    // suspended until activated by another process
	ProcessRunning    ProcessState = "running"    // being resumed by the scheduler
	ProcessTerminated ProcessState = "terminated" // returned from Resume without suspending
)

// Process is a cooperative actor driven by the Scheduler.
//
// Resume runs the process from its last suspension point up to the next one.
// Implementations keep an explicit resume point (a phase enum) and finish
// every resumption with Hold or Passivate; returning without either
// terminates the process.
//
// Implementations embed Proc, which supplies the scheduling bookkeeping.
type Process interface {
	Resume()
	proc() *Proc
}

// Proc carries the scheduling state of a process. Embed it by value.
type Proc struct {
	name  string
	sched *Scheduler
	state ProcessState
	wake  *wakeup
}

// NewProc returns the bookkeeping for a process bound to s.
func NewProc(name string, s *Scheduler) Proc {
	return Proc{name: name, sched: s, state: ProcessCreated}
}

func (p *Proc) proc() *Proc { return p }

func (p *Proc) bind(s *Scheduler) {
	if p.sched == nil {
		p.sched = s
		return
	}
	if p.sched != s {
		panic(fmt.Sprintf("process %s is bound to another scheduler", p.name))
	}
}

// Name returns the process name used in logs and traces.
func (p *Proc) Name() string { return p.name }

// ProcessState returns the current scheduling state.
func (p *Proc) ProcessState() ProcessState { return p.state }

// Scheduler returns the scheduler the process is bound to.
func (p *Proc) Scheduler() *Scheduler { return p.sched }

// Now returns the scheduler clock.
func (p *Proc) Now() int64 { return p.sched.clock }

// Hold suspends the running process for d ticks.
// A zero hold still yields, so wake-ups queued earlier for the same instant run first.
func (p *Proc) Hold(d int64) {
	p.mustBeRunning("Hold")
	p.sched.ScheduleAfter(p.self(), d)
}

// Passivate suspends the running process until another process activates it.
func (p *Proc) Passivate() {
	p.mustBeRunning("Passivate")
	p.state = ProcessPassive
}

// IsSuspended reports whether the process can be activated.
func (p *Proc) IsSuspended() bool {
	return p.state == ProcessCreated || p.state == ProcessScheduled || p.state == ProcessPassive
}

func (p *Proc) mustBeRunning(op string) {
	if p.state != ProcessRunning {
		panic(fmt.Sprintf("%s: %s is %s, only the running process may suspend itself", op, p.name, p.state))
	}
}

// self recovers the Process that embeds p; only the running process can call it.
func (p *Proc) self() Process {
	cur := p.sched.current
	if cur == nil || cur.proc() != p {
		panic(fmt.Sprintf("process %s is not the current process", p.name))
	}
	return cur
}
