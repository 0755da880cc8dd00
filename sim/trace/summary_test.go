package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	// GIVEN a disabled trace
	var st *SimulationTrace

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalDispatches != 0 || summary.Conflicts != 0 || summary.Suspensions != 0 {
		t.Error("expected zero counts")
	}
	if len(summary.SourceDistribution) != 0 {
		t.Error("expected empty source distribution")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with dispatches, skips, conflicts and suspensions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordDispatch(DispatchRecord{Item: "t1", Source: "story_tasks"})
	st.RecordDispatch(DispatchRecord{Item: "t1", Source: "review"})
	st.RecordDispatch(DispatchRecord{Item: "t2", Source: "story_tasks"})
	st.RecordSkip(SkipRecord{TaskID: "t3"})
	st.RecordSkip(SkipRecord{TaskID: "t3"})
	st.RecordSkip(SkipRecord{TaskID: "t4"})
	st.RecordConflict(ConflictRecord{WorkID: "t2", StartedAt: 1, CommitAt: 3})
	st.RecordConflict(ConflictRecord{WorkID: "t5", StartedAt: 10, CommitAt: 20})
	st.RecordSuspension(SuspensionRecord{TaskID: "t1", Delay: 30})
	st.RecordSuspension(SuspensionRecord{TaskID: "t2", Delay: 30})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalDispatches != 3 {
		t.Errorf("expected 3 dispatches, got %d", summary.TotalDispatches)
	}
	if summary.SourceDistribution["story_tasks"] != 2 || summary.SourceDistribution["review"] != 1 {
		t.Errorf("unexpected source distribution %v", summary.SourceDistribution)
	}
	if summary.SkippedTasks != 3 || summary.UniqueSkipped != 2 {
		t.Errorf("expected 3 skips over 2 tasks, got %d over %d", summary.SkippedTasks, summary.UniqueSkipped)
	}
	if summary.Conflicts != 2 {
		t.Errorf("expected 2 conflicts, got %d", summary.Conflicts)
	}
	if summary.MeanConflictWindow != 6 {
		t.Errorf("expected mean conflict window 6, got %v", summary.MeanConflictWindow)
	}
	if summary.Suspensions != 2 || summary.TotalSuspension != 60 {
		t.Errorf("expected 2 suspensions totalling 60, got %d / %d", summary.Suspensions, summary.TotalSuspension)
	}
}
