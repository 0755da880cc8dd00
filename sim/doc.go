// Package sim provides the discrete-event process-scheduling kernel of reviewsim.
//
// # Reading Guide
//
//   - scheduler.go: simulated clock, wake-up queue ordered by (time, insertion
//     sequence), and the Run loop
//   - process.go: the cooperative process abstraction (Hold, Passivate,
//     Activate) that every actor embeds
//   - rng.go: per-name random streams derived from one master seed
//
// # Execution model
//
// Exactly one process runs at a time. A process runs from one suspension
// point (Hold or Passivate) to the next inside its Resume method and keeps its
// own resume point as an explicit phase. No goroutines are involved, so shared
// model state needs no locking and a run is fully determined by its seed.
//
// # Sub-packages
//   - sim/dist/: samplers for the configured distributions
//   - sim/vcs/: commit-conflict ledger over in-progress work
//   - sim/trace/: decision trace recording
//   - sim/devproc/: the development-process model built on the kernel
package sim
