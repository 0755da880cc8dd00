// Tracks the result surface read back by the statistics layer:
// monotonically increasing counters, the story completion sequence and
// named duration aggregates.

package devproc

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Activity names a duration aggregate.
type Activity string

const (
	ActivityPlanning           Activity = "planning"
	ActivityImplementing       Activity = "implementing"
	ActivityReviewing          Activity = "reviewing"
	ActivityFixingRemarks      Activity = "fixing_remarks"
	ActivityFixingIssues       Activity = "fixing_issues"
	ActivityResolvingConflicts Activity = "resolving_conflicts"
	ActivityBlocked            Activity = "blocked"
)

// Activities lists every aggregate in reporting order.
var Activities = []Activity{
	ActivityPlanning,
	ActivityImplementing,
	ActivityReviewing,
	ActivityFixingRemarks,
	ActivityFixingIssues,
	ActivityResolvingConflicts,
	ActivityBlocked,
}

// Completion records the finished-story count right after a story finished.
type Completion struct {
	Clock           int64
	FinishedStories int
	StoryPoints     int
}

// Results aggregates the counters of one run.
type Results struct {
	Policy       Policy
	Seed         int64
	SimEndedTime int64

	StartedStories      int
	FinishedStories     int
	FinishedStoryPoints int

	IssuesInjected          int
	IssuesFoundByDevelopers int
	IssuesFoundByCustomers  int
	IssuesFixedInReview     int
	IssuesFixedByTask       int
	GlobalBlockersObserved  int

	TasksFinished    int
	FixTasksFinished int
	Commits          int
	Conflicts        int

	// ReviewRounds maps rounds of remarks → finished tasks that needed that many.
	// A task accepted at its first review counts zero rounds.
	ReviewRounds map[int]int
	// StoryCompletions is the story completion sequence in completion order.
	StoryCompletions []Completion
	// Durations sums simulated time spent per activity (developer-ticks; blocked is task-ticks).
	// Blocked ticks are excluded from the implementing and fixing_issues totals.
	Durations map[Activity]int64
	// CycleTimes holds finish - start of every finished story, in completion order.
	CycleTimes []float64
}

// NewResults creates an empty result surface.
func NewResults(policy Policy, seed int64) *Results {
	return &Results{
		Policy:       policy,
		Seed:         seed,
		ReviewRounds: make(map[int]int),
		Durations:    make(map[Activity]int64),
	}
}

func (r *Results) addDuration(a Activity, d int64) {
	r.Durations[a] += d
}

func (r *Results) storyFinished(now int64, s *Story) {
	r.FinishedStories++
	r.FinishedStoryPoints += s.points
	r.CycleTimes = append(r.CycleTimes, float64(now-s.startTime))
	r.StoryCompletions = append(r.StoryCompletions, Completion{
		Clock:           now,
		FinishedStories: r.FinishedStories,
		StoryPoints:     r.FinishedStoryPoints,
	})
}

// CycleTimeMeanStdDev returns the mean and sample standard deviation of story cycle times.
// Zero stories yield (0, 0); a single story has no spread.
func (r *Results) CycleTimeMeanStdDev() (mean, stdDev float64) {
	switch len(r.CycleTimes) {
	case 0:
		return 0, 0
	case 1:
		return r.CycleTimes[0], 0
	}
	return stat.MeanStdDev(r.CycleTimes, nil)
}

// CycleTimeQuantile returns the empirical p-quantile (0 <= p <= 1) of story cycle times.
func (r *Results) CycleTimeQuantile(p float64) float64 {
	if len(r.CycleTimes) == 0 {
		return 0
	}
	sorted := append([]float64(nil), r.CycleTimes...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// MeanReviewRounds returns the average number of remark rounds per finished task.
func (r *Results) MeanReviewRounds() float64 {
	rounds := make([]float64, 0, len(r.ReviewRounds))
	weights := make([]float64, 0, len(r.ReviewRounds))
	for _, k := range r.reviewRoundKeys() {
		rounds = append(rounds, float64(k))
		weights = append(weights, float64(r.ReviewRounds[k]))
	}
	if len(rounds) == 0 {
		return 0
	}
	return stat.Mean(rounds, weights)
}

func (r *Results) reviewRoundKeys() []int {
	keys := make([]int, 0, len(r.ReviewRounds))
	for k := range r.ReviewRounds {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Print writes a human-readable summary of the run.
func (r *Results) Print(w io.Writer) {
	mean, std := r.CycleTimeMeanStdDev()
	fmt.Fprintf(w, "=== Simulation Results (%s, seed %d) ===\n", r.Policy, r.Seed)
	fmt.Fprintf(w, "Simulated Time          : %d ticks\n", r.SimEndedTime)
	fmt.Fprintf(w, "Stories Started         : %d\n", r.StartedStories)
	fmt.Fprintf(w, "Stories Finished        : %d\n", r.FinishedStories)
	fmt.Fprintf(w, "Story Points Finished   : %d\n", r.FinishedStoryPoints)
	fmt.Fprintf(w, "Cycle Time mean/std     : %.2f / %.2f ticks\n", mean, std)
	fmt.Fprintf(w, "Cycle Time p50/p90      : %.2f / %.2f ticks\n", r.CycleTimeQuantile(0.5), r.CycleTimeQuantile(0.9))
	fmt.Fprintf(w, "Issues Injected         : %d\n", r.IssuesInjected)
	fmt.Fprintf(w, "Issues Fixed in Review  : %d\n", r.IssuesFixedInReview)
	fmt.Fprintf(w, "Issues Found (devs)     : %d\n", r.IssuesFoundByDevelopers)
	fmt.Fprintf(w, "Issues Found (customers): %d\n", r.IssuesFoundByCustomers)
	fmt.Fprintf(w, "Global Blockers         : %d\n", r.GlobalBlockersObserved)
	fmt.Fprintf(w, "Commits / Conflicts     : %d / %d\n", r.Commits, r.Conflicts)
	fmt.Fprintf(w, "Mean Review Rounds      : %.2f\n", r.MeanReviewRounds())
	for _, k := range r.reviewRoundKeys() {
		fmt.Fprintf(w, "  %2d round(s)          : %d tasks\n", k, r.ReviewRounds[k])
	}
	fmt.Fprintln(w, "Time Spent:")
	for _, a := range Activities {
		fmt.Fprintf(w, "  %-22s: %d ticks\n", a, r.Durations[a])
	}
}
