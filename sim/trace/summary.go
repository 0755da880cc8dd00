package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDispatches    int
	SourceDistribution map[string]int // queue name → dispatches served from it
	SkippedTasks       int
	UniqueSkipped      int
	Conflicts          int
	MeanConflictWindow float64 // mean of (conflicting commit - failed work start)
	Suspensions        int
	TotalSuspension    int64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		SourceDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDispatches = len(st.Dispatches)
	for _, d := range st.Dispatches {
		summary.SourceDistribution[d.Source]++
	}

	summary.SkippedTasks = len(st.Skips)
	seen := make(map[string]bool)
	for _, s := range st.Skips {
		seen[s.TaskID] = true
	}
	summary.UniqueSkipped = len(seen)

	if len(st.Conflicts) > 0 {
		total := 0.0
		for _, c := range st.Conflicts {
			total += float64(c.CommitAt - c.StartedAt)
		}
		summary.Conflicts = len(st.Conflicts)
		summary.MeanConflictWindow = total / float64(len(st.Conflicts))
	}

	summary.Suspensions = len(st.Suspensions)
	for _, s := range st.Suspensions {
		summary.TotalSuspension += s.Delay
	}

	return summary
}
