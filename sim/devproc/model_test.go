package devproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/reviewsim/reviewsim/sim/dist"
	"github.com/reviewsim/reviewsim/sim/trace"
)

// constantConfig returns a config with every duration constant and no
// injected issues, so timings in tests are exact.
func constantConfig() Config {
	cfg := DefaultConfig()
	cfg.Developers = 3
	cfg.MaxPlanners = 1
	cfg.ImplementationTime = dist.Constant(10)
	cfg.ReviewTime = dist.Constant(5)
	cfg.RemarkFixTime = dist.Constant(3)
	cfg.BugfixTime = dist.Constant(10)
	cfg.PlanningTime = dist.Constant(5)
	cfg.ConflictResolutionTime = dist.Constant(4)
	cfg.DeveloperActivationTime = dist.Constant(100)
	cfg.CustomerActivationTime = dist.Constant(10000)
	cfg.GlobalSuspendTime = dist.Constant(50)
	cfg.ImplementationSkill = dist.Constant(0)
	cfg.ReviewSkill = dist.Constant(0)
	cfg.ConflictProbability = 0
	cfg.GlobalDefectRate = 0
	cfg.DeveloperOnlyShare = 0
	return cfg
}

func newTestModel(t *testing.T, cfg Config) *Model {
	t.Helper()
	m, err := NewModel(cfg, trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions}))
	require.NoError(t, err)
	return m
}

func TestNewModel_InvalidConfig_ReturnsError(t *testing.T) {
	// GIVEN a config with a single developer
	cfg := DefaultConfig()
	cfg.Developers = 1

	// WHEN the model is built
	m, err := NewModel(cfg, nil)

	// THEN construction fails
	assert.Nil(t, m)
	assert.ErrorContains(t, err, "developers")
}

func TestModel_SameSeed_ReplaysIdentically(t *testing.T) {
	for _, policy := range []Policy{PreCommit, PostCommit} {
		t.Run(string(policy), func(t *testing.T) {
			// GIVEN two models with the default config and the same seed
			cfg := DefaultConfig()
			cfg.Policy = policy
			a, err := NewModel(cfg, nil)
			require.NoError(t, err)
			b, err := NewModel(cfg, nil)
			require.NoError(t, err)

			// WHEN both run to the same horizon
			ra := a.RunUntil(20000)
			rb := b.RunUntil(20000)

			// THEN every counter and the completion sequence match
			require.Greater(t, ra.FinishedStories, 0)
			assert.Equal(t, ra, rb)
		})
	}
}

func TestModel_DifferentSeeds_Diverge(t *testing.T) {
	// GIVEN two models that differ only in seed
	cfg := DefaultConfig()
	a, err := NewModel(cfg, nil)
	require.NoError(t, err)
	cfg.Seed = 7
	b, err := NewModel(cfg, nil)
	require.NoError(t, err)

	// WHEN both run
	ra := a.RunUntil(20000)
	rb := b.RunUntil(20000)

	// THEN the completion sequences differ
	assert.NotEqual(t, ra.StoryCompletions, rb.StoryCompletions)
}

func TestModel_RunUntil_LeavesClockAtHorizon(t *testing.T) {
	m := newTestModel(t, constantConfig())

	res := m.RunUntil(500)

	assert.Equal(t, int64(500), res.SimEndedTime)
	assert.Equal(t, int64(500), m.Now())
}

func TestModel_NoIssues_EveryTaskNeedsOneReview(t *testing.T) {
	for _, policy := range []Policy{PreCommit, PostCommit} {
		t.Run(string(policy), func(t *testing.T) {
			// GIVEN developers who never inject issues
			cfg := constantConfig()
			cfg.Policy = policy
			m := newTestModel(t, cfg)

			// WHEN the team works for a while
			res := m.RunUntil(2000)

			// THEN every finished task passed review at the first attempt, with no remark round
			require.Greater(t, res.TasksFinished, 0)
			assert.Equal(t, map[int]int{0: res.TasksFinished}, res.ReviewRounds)
			assert.Zero(t, res.IssuesInjected)
			assert.Zero(t, res.Conflicts)
			assert.GreaterOrEqual(t, res.Commits, res.TasksFinished)
		})
	}
}

func TestModel_SingleTaskStory_ExactTimeline(t *testing.T) {
	// GIVEN one single-task story template and a WIP limit of one story
	cfg := constantConfig()
	cfg.MaxOpenStories = 1
	cfg.TaskGraphs = []TaskGraph{{StoryPoints: 3, Tasks: [][]int{{}}}}
	m := newTestModel(t, cfg)

	// WHEN the first story runs to completion
	res := m.RunUntil(20)

	// THEN planning (5) + implementation (10) + review (5) finish it at tick 20
	require.Len(t, res.StoryCompletions, 1)
	assert.Equal(t, Completion{Clock: 20, FinishedStories: 1, StoryPoints: 3}, res.StoryCompletions[0])
	assert.Equal(t, []float64{20}, res.CycleTimes)
	assert.Equal(t, int64(5), res.Durations[ActivityPlanning])
	assert.Equal(t, int64(10), res.Durations[ActivityImplementing])
	assert.Equal(t, int64(5), res.Durations[ActivityReviewing])

	// AND the team took four pieces of work: new story, implementation, review,
	// and the next story started as soon as the first one finished
	taken := 0
	for _, d := range m.Developers() {
		taken += d.Assignments()
	}
	assert.Equal(t, 4, taken)
	assert.Equal(t, 2, res.StartedStories)
}

func TestModel_WIPLimit_IdleDevelopersWakeForNextStory(t *testing.T) {
	// GIVEN three developers and at most one open story
	cfg := constantConfig()
	cfg.MaxOpenStories = 1
	m := newTestModel(t, cfg)

	// WHEN the model runs long enough for several stories
	res := m.RunUntil(1000)

	// THEN stories complete one after another and never overlap
	assert.GreaterOrEqual(t, res.FinishedStories, 5)
	assert.LessOrEqual(t, res.StartedStories-res.FinishedStories, 1)
}

func TestModel_DependentTask_StartsWhenPrerequisiteIsReady(t *testing.T) {
	// GIVEN a two-task chain and a conflict-free repository
	cfg := constantConfig()
	cfg.MaxOpenStories = 1
	cfg.TaskGraphs = []TaskGraph{{StoryPoints: 2, Tasks: [][]int{{}, {0}}}}

	run := func(p Policy) []Completion {
		c := cfg
		c.Policy = p
		m := newTestModel(t, c)
		return m.RunUntil(60).StoryCompletions
	}

	// WHEN the same story runs under both policies
	pre := run(PreCommit)
	post := run(PostCommit)

	// THEN the dependent starts at tick 15 either way: pre-commit needs the
	// prerequisite implemented, post-commit needs it committed, and without
	// conflicts both happen at the end of implementation (5+10+10+5 = 30)
	require.NotEmpty(t, pre)
	require.NotEmpty(t, post)
	assert.Equal(t, int64(30), pre[0].Clock)
	assert.Equal(t, int64(30), post[0].Clock)
}

func TestModel_PostCommit_IssuesBecomeVisibleEarlier(t *testing.T) {
	// GIVEN one issue per task that reviewers never catch, noticed 100 ticks after commit
	cfg := constantConfig()
	cfg.MaxOpenStories = 1
	cfg.TaskGraphs = []TaskGraph{{StoryPoints: 1, Tasks: [][]int{{}}}}
	cfg.ImplementationSkill = dist.Constant(1)
	cfg.DeveloperOnlyShare = 1

	found := func(p Policy) int {
		c := cfg
		c.Policy = p
		return newTestModel(t, c).RunUntil(117).IssuesFoundByDevelopers
	}

	// WHEN both policies run with identical draws
	// THEN post-commit commits at 15 and the issue surfaces at 115,
	// while pre-commit commits after review at 20 and it surfaces at 120
	assert.Equal(t, 1, found(PostCommit))
	assert.Equal(t, 0, found(PreCommit))
}

func TestModel_DeveloperOnlyIssues_NeverReachCustomers(t *testing.T) {
	// GIVEN every injected issue is developer-only and customers notice quickly
	cfg := constantConfig()
	cfg.ImplementationSkill = dist.Constant(1)
	cfg.DeveloperOnlyShare = 1
	cfg.CustomerActivationTime = dist.Constant(1)
	m := newTestModel(t, cfg)

	// WHEN the team works
	res := m.RunUntil(3000)

	// THEN developers find issues and customers never do
	assert.Greater(t, res.IssuesInjected, 0)
	assert.Greater(t, res.IssuesFoundByDevelopers, 0)
	assert.Zero(t, res.IssuesFoundByCustomers)
}

func TestModel_GlobalBlockers_AreDeveloperVisibleOnly(t *testing.T) {
	// GIVEN every injected issue is a global blocker
	cfg := constantConfig()
	cfg.ImplementationSkill = dist.Constant(1)
	cfg.GlobalDefectRate = 1
	cfg.CustomerActivationTime = dist.Constant(1)
	m := newTestModel(t, cfg)

	// WHEN the team works
	res := m.RunUntil(3000)

	// THEN each observation is a blocker and customers see none of them
	assert.Greater(t, res.GlobalBlockersObserved, 0)
	assert.Equal(t, res.GlobalBlockersObserved, res.IssuesFoundByDevelopers)
	assert.Zero(t, res.IssuesFoundByCustomers)
}

func TestModel_PerfectReviewers_CatchEveryIssueBeforeCommit(t *testing.T) {
	// GIVEN one issue per task and reviewers that detect everything
	cfg := constantConfig()
	cfg.Policy = PreCommit
	cfg.ImplementationSkill = dist.Constant(1)
	cfg.ReviewSkill = dist.Constant(1)
	cfg.DeveloperActivationTime = dist.Constant(1)
	m := newTestModel(t, cfg)

	// WHEN the team works
	res := m.RunUntil(3000)

	// THEN every finished task needed exactly one remark round and no issue escaped
	require.Greater(t, res.TasksFinished, 0)
	assert.Equal(t, map[int]int{1: res.TasksFinished}, res.ReviewRounds)
	assert.Zero(t, res.IssuesFoundByDevelopers)
	assert.Zero(t, res.IssuesFoundByCustomers)
	assert.GreaterOrEqual(t, res.Durations[ActivityFixingRemarks], int64(3*res.TasksFinished))
}

func TestModel_Invariants_HoldForRandomConfigs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := DefaultConfig()
		cfg.Seed = rapid.Int64().Draw(rt, "seed")
		cfg.Policy = rapid.SampledFrom([]Policy{PreCommit, PostCommit}).Draw(rt, "policy")
		cfg.Developers = rapid.IntRange(2, 6).Draw(rt, "developers")
		cfg.MaxPlanners = rapid.IntRange(1, 3).Draw(rt, "planners")
		cfg.MaxOpenStories = rapid.IntRange(0, 3).Draw(rt, "wip")
		cfg.ConflictProbability = rapid.Float64Range(0, 0.5).Draw(rt, "conflict")
		cfg.GlobalDefectRate = rapid.Float64Range(0, 0.2).Draw(rt, "global")
		m, err := NewModel(cfg, nil)
		require.NoError(rt, err)

		res := m.RunUntil(5000)

		assert.LessOrEqual(rt, res.FinishedStories, res.StartedStories)
		assert.GreaterOrEqual(rt, res.Commits, res.TasksFinished)
		assert.LessOrEqual(rt, res.IssuesFixedInReview+res.IssuesFixedByTask, res.IssuesInjected)
		if cfg.MaxOpenStories > 0 {
			assert.LessOrEqual(rt, res.StartedStories-res.FinishedStories, cfg.MaxOpenStories)
		}
		rounds := 0
		for _, n := range res.ReviewRounds {
			rounds += n
		}
		assert.Equal(rt, res.TasksFinished, rounds)
		for i, c := range res.StoryCompletions {
			assert.Equal(rt, i+1, c.FinishedStories)
			if i > 0 {
				assert.GreaterOrEqual(rt, c.Clock, res.StoryCompletions[i-1].Clock)
			}
		}
	})
}

func TestModel_ReviewRounds_CountOnlyRoundsWithRemarks(t *testing.T) {
	tests := []struct {
		name        string
		reviewSkill float64
		horizon     int64
		want        map[int]int
	}{
		// 5 planning + 10 implementation + 5 clean review
		{"clean first review", 0, 20, map[int]int{0: 1}},
		// then 3 remark fix + 5 second review
		{"one round of remarks", 1, 28, map[int]int{1: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a single-task story whose implementation injects one issue
			cfg := constantConfig()
			cfg.MaxOpenStories = 1
			cfg.TaskGraphs = []TaskGraph{{StoryPoints: 1, Tasks: [][]int{{}}}}
			cfg.ImplementationSkill = dist.Constant(1)
			cfg.ReviewSkill = dist.Constant(tt.reviewSkill)
			m := newTestModel(t, cfg)

			// WHEN the story completes
			res := m.RunUntil(tt.horizon)

			// THEN only reviews that raised remarks count as rounds
			require.Equal(t, 1, res.TasksFinished)
			assert.Equal(t, tt.want, res.ReviewRounds)
		})
	}
}
