package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reviewsim/reviewsim/sim/devproc"
	"github.com/reviewsim/reviewsim/sim/trace"
)

// runCmd executes one simulation run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the review simulation under one policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		res, st, err := simulate(cfg, horizon, trace.TraceLevel(traceLevel))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		res.Print(out)
		printTraceSummary(out, st)
		return nil
	},
}

// compareCmd runs both policies on the same seed and configuration
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run pre-commit and post-commit review on identical draws and compare",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		var runs []*devproc.Results
		for _, p := range []devproc.Policy{devproc.PreCommit, devproc.PostCommit} {
			cfg.Policy = p
			res, st, err := simulate(cfg, horizon, trace.TraceLevel(traceLevel))
			if err != nil {
				return err
			}
			res.Print(out)
			printTraceSummary(out, st)
			fmt.Fprintln(out)
			runs = append(runs, res)
		}
		printComparison(out, runs[0], runs[1])
		return nil
	},
}

// simulate builds a model from cfg and runs it until the horizon.
func simulate(cfg devproc.Config, horizon int64, level trace.TraceLevel) (*devproc.Results, *trace.SimulationTrace, error) {
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: level})
	m, err := devproc.NewModel(cfg, st)
	if err != nil {
		return nil, nil, err
	}
	logrus.Infof("Starting %s simulation: %d developers, horizon=%d ticks, seed=%d",
		cfg.Policy, cfg.Developers, horizon, cfg.Seed)
	start := time.Now()
	res := m.RunUntil(horizon)
	logrus.Infof("Simulation complete in %s", time.Since(start))
	return res, st, nil
}

func printTraceSummary(w io.Writer, st *trace.SimulationTrace) {
	if st == nil {
		return
	}
	sum := trace.Summarize(st)
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Dispatches              : %d\n", sum.TotalDispatches)
	for _, src := range sortedKeys(sum.SourceDistribution) {
		fmt.Fprintf(w, "  %-22s: %d\n", src, sum.SourceDistribution[src])
	}
	fmt.Fprintf(w, "Skipped Tasks           : %d (%d unique)\n", sum.SkippedTasks, sum.UniqueSkipped)
	fmt.Fprintf(w, "Conflicts               : %d (mean window %.1f ticks)\n", sum.Conflicts, sum.MeanConflictWindow)
	fmt.Fprintf(w, "Suspensions             : %d (%d ticks)\n", sum.Suspensions, sum.TotalSuspension)
}

// printComparison prints post-commit figures relative to pre-commit.
func printComparison(w io.Writer, pre, post *devproc.Results) {
	preMean, _ := pre.CycleTimeMeanStdDev()
	postMean, _ := post.CycleTimeMeanStdDev()
	fmt.Fprintln(w, "=== Comparison (post-commit vs pre-commit) ===")
	fmt.Fprintf(w, "%-24s %12s %12s %10s\n", "", "pre-commit", "post-commit", "delta")
	row := func(name string, a, b float64) {
		fmt.Fprintf(w, "%-24s %12.2f %12.2f %+10.2f\n", name, a, b, b-a)
	}
	row("Story points finished", float64(pre.FinishedStoryPoints), float64(post.FinishedStoryPoints))
	row("Stories finished", float64(pre.FinishedStories), float64(post.FinishedStories))
	row("Mean cycle time", preMean, postMean)
	row("Issues found (devs)", float64(pre.IssuesFoundByDevelopers), float64(post.IssuesFoundByDevelopers))
	row("Issues found (customers)", float64(pre.IssuesFoundByCustomers), float64(post.IssuesFoundByCustomers))
	row("Conflicts", float64(pre.Conflicts), float64(post.Conflicts))
	row("Mean review rounds", pre.MeanReviewRounds(), post.MeanReviewRounds())
}
