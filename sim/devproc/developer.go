package devproc

import (
	"fmt"

	"github.com/reviewsim/reviewsim/sim"
)

// Developer is a worker process. It loops on the Board: take work, hand it
// to the owning task or story, and passivate until released.
type Developer struct {
	sim.Proc
	m *Model

	id                  string
	implementationSkill float64 // mean latent issues per implemented task
	reviewSkill         float64 // per-issue detection probability
	assignments         int
}

func newDeveloper(m *Model, i int) *Developer {
	id := fmt.Sprintf("dev_%d", i)
	return &Developer{
		Proc:                sim.NewProc(id, m.sched),
		m:                   m,
		id:                  id,
		implementationSkill: m.streams.implementationSkill.NonNegative(),
		reviewSkill:         m.streams.reviewSkill.Probability(),
	}
}

// ID returns the developer identifier.
func (d *Developer) ID() string { return d.id }

// ImplementationSkill returns the mean number of issues d injects per task.
func (d *Developer) ImplementationSkill() float64 { return d.implementationSkill }

// ReviewSkill returns the probability that d spots a given issue in review.
func (d *Developer) ReviewSkill() float64 { return d.reviewSkill }

// Assignments returns how many units of work d took from the Board.
func (d *Developer) Assignments() int { return d.assignments }

// Resume asks the Board for work. With nothing eligible, d goes idle until
// new work appears.
func (d *Developer) Resume() {
	a := d.m.board.NextWork(d)
	if a == nil {
		d.m.board.addIdle(d)
		d.Passivate()
		return
	}
	d.assignments++
	a.start(d)
	d.Passivate()
}
