package devproc

import (
	"math/rand"

	"github.com/reviewsim/reviewsim/sim"
	"github.com/reviewsim/reviewsim/sim/dist"
)

// Random stream names. Each named distribution draws from its own stream
// derived from the master seed.
const (
	StreamImplementationTime     = "implementation_time"
	StreamReviewTime             = "review_time"
	StreamRemarkFixTime          = "remark_fix_time"
	StreamBugfixTime             = "bugfix_time"
	StreamPlanningTime           = "planning_time"
	StreamConflictResolutionTime = "conflict_resolution_time"
	StreamDeveloperActivation    = "developer_activation_time"
	StreamCustomerActivation     = "customer_activation_time"
	StreamGlobalSuspendTime      = "global_suspend_time"
	StreamImplementationSkill    = "implementation_skill"
	StreamReviewSkill            = "review_skill"

	StreamConflict   = "conflict"
	StreamIssueCount = "issue_count"
	StreamIssueKind  = "issue_kind"
	StreamDetection  = "review_detection"
	StreamTaskGraph  = "task_graph"
)

// streams holds every random source of a model.
type streams struct {
	implementationTime     *dist.Stream
	reviewTime             *dist.Stream
	remarkFixTime          *dist.Stream
	bugfixTime             *dist.Stream
	planningTime           *dist.Stream
	conflictResolutionTime *dist.Stream
	developerActivation    *dist.Stream
	customerActivation     *dist.Stream
	globalSuspendTime      *dist.Stream
	implementationSkill    *dist.Stream
	reviewSkill            *dist.Stream

	conflict   *dist.Bernoulli
	issueCount *dist.Bernoulli
	detection  *dist.Bernoulli
	issueKind  *rand.Rand
	taskGraph  *rand.Rand
}

func newStreams(cfg *Config, rng *sim.PartitionedRNG) (*streams, error) {
	s := &streams{
		issueKind: rng.Stream(StreamIssueKind),
		taskGraph: rng.Stream(StreamTaskGraph),
	}
	targets := map[string]**dist.Stream{
		StreamImplementationTime:     &s.implementationTime,
		StreamReviewTime:             &s.reviewTime,
		StreamRemarkFixTime:          &s.remarkFixTime,
		StreamBugfixTime:             &s.bugfixTime,
		StreamPlanningTime:           &s.planningTime,
		StreamConflictResolutionTime: &s.conflictResolutionTime,
		StreamDeveloperActivation:    &s.developerActivation,
		StreamCustomerActivation:     &s.customerActivation,
		StreamGlobalSuspendTime:      &s.globalSuspendTime,
		StreamImplementationSkill:    &s.implementationSkill,
		StreamReviewSkill:            &s.reviewSkill,
	}
	for _, d := range cfg.distributions() {
		st, err := dist.NewStream(d.name, d.spec, rng.Stream(d.name))
		if err != nil {
			return nil, err
		}
		*targets[d.name] = st
	}

	var err error
	if s.conflict, err = dist.NewBernoulli(StreamConflict, cfg.ConflictProbability, rng.Stream(StreamConflict)); err != nil {
		return nil, err
	}
	// issue_count and review_detection flip coins with per-developer probabilities
	if s.issueCount, err = dist.NewBernoulli(StreamIssueCount, 0, rng.Stream(StreamIssueCount)); err != nil {
		return nil, err
	}
	if s.detection, err = dist.NewBernoulli(StreamDetection, 0, rng.Stream(StreamDetection)); err != nil {
		return nil, err
	}
	return s, nil
}
