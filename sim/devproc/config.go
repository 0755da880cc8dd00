package devproc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/reviewsim/reviewsim/sim/dist"
)

// Policy selects when a task's changes are committed relative to review.
type Policy string

const (
	// PreCommit reviews before integration: commit happens after a clean review.
	PreCommit Policy = "pre-commit"
	// PostCommit reviews after integration: commit happens right after implementation.
	PostCommit Policy = "post-commit"
)

// validPolicies maps accepted policy strings.
var validPolicies = map[Policy]bool{
	PreCommit:  true,
	PostCommit: true,
}

// IsValidPolicy returns true if the given string names a review policy.
func IsValidPolicy(p string) bool {
	return validPolicies[Policy(p)]
}

// TaskGraph is a story decomposition template.
// Tasks[i] lists the indices of the tasks that task i depends on; every index must be < i.
type TaskGraph struct {
	StoryPoints int     `yaml:"story_points" toml:"story_points"`
	Tasks       [][]int `yaml:"tasks" toml:"tasks"`
}

// Config is the parameter bundle of one simulation run.
// Durations are in ticks (one tick is one simulated minute by convention).
// Loaded from YAML or TOML via LoadConfig(path).
type Config struct {
	Seed       int64  `yaml:"seed" toml:"seed"`
	Policy     Policy `yaml:"policy" toml:"policy"`
	Developers int    `yaml:"developers" toml:"developers"`
	// MaxPlanners caps how many developers plan one story together.
	MaxPlanners int `yaml:"max_planners" toml:"max_planners"`
	// MaxOpenStories caps started-but-unfinished stories; 0 = unlimited.
	MaxOpenStories int `yaml:"max_open_stories" toml:"max_open_stories"`

	ImplementationTime      dist.Spec `yaml:"implementation_time" toml:"implementation_time"`
	ReviewTime              dist.Spec `yaml:"review_time" toml:"review_time"`
	RemarkFixTime           dist.Spec `yaml:"remark_fix_time" toml:"remark_fix_time"` // per remark
	BugfixTime              dist.Spec `yaml:"bugfix_time" toml:"bugfix_time"`
	PlanningTime            dist.Spec `yaml:"planning_time" toml:"planning_time"`
	ConflictResolutionTime  dist.Spec `yaml:"conflict_resolution_time" toml:"conflict_resolution_time"`
	DeveloperActivationTime dist.Spec `yaml:"developer_activation_time" toml:"developer_activation_time"`
	CustomerActivationTime  dist.Spec `yaml:"customer_activation_time" toml:"customer_activation_time"`
	GlobalSuspendTime       dist.Spec `yaml:"global_suspend_time" toml:"global_suspend_time"`

	// ImplementationSkill is drawn once per developer: mean latent issues injected per task.
	ImplementationSkill dist.Spec `yaml:"implementation_skill" toml:"implementation_skill"`
	// ReviewSkill is drawn once per developer: probability of detecting each latent issue.
	ReviewSkill dist.Spec `yaml:"review_skill" toml:"review_skill"`

	ConflictProbability float64 `yaml:"conflict_probability" toml:"conflict_probability"`
	// GlobalDefectRate is the share of injected issues that block all implementation work.
	GlobalDefectRate float64 `yaml:"global_defect_rate" toml:"global_defect_rate"`
	// DeveloperOnlyShare is the share of injected issues customers never see.
	DeveloperOnlyShare float64 `yaml:"developer_only_share" toml:"developer_only_share"`

	TaskGraphs []TaskGraph `yaml:"task_graphs" toml:"task_graphs"`
}

// DefaultConfig returns a baseline team of five developers.
func DefaultConfig() Config {
	return Config{
		Seed:                    42,
		Policy:                  PreCommit,
		Developers:              5,
		MaxPlanners:             2,
		MaxOpenStories:          0,
		ImplementationTime:      dist.Spec{Type: "lognormal", Params: map[string]float64{"mu": 5.5, "sigma": 0.6}},
		ReviewTime:              dist.Exponential(45),
		RemarkFixTime:           dist.Exponential(20),
		BugfixTime:              dist.Exponential(120),
		PlanningTime:            dist.Spec{Type: "triangular", Params: map[string]float64{"min": 30, "mode": 60, "max": 240}},
		ConflictResolutionTime:  dist.Exponential(30),
		DeveloperActivationTime: dist.Exponential(2400),
		CustomerActivationTime:  dist.Exponential(9600),
		GlobalSuspendTime:       dist.Exponential(90),
		ImplementationSkill:     dist.Spec{Type: "uniform", Params: map[string]float64{"min": 0.5, "max": 1.5}},
		ReviewSkill:             dist.Spec{Type: "uniform", Params: map[string]float64{"min": 0.3, "max": 0.7}},
		ConflictProbability:     0.1,
		GlobalDefectRate:        0.01,
		DeveloperOnlyShare:      0.3,
		TaskGraphs: []TaskGraph{
			{StoryPoints: 1, Tasks: [][]int{{}}},
			{StoryPoints: 2, Tasks: [][]int{{}, {0}}},
			{StoryPoints: 3, Tasks: [][]int{{}, {0}, {0}}},
			{StoryPoints: 5, Tasks: [][]int{{}, {0}, {0}, {1, 2}}},
			{StoryPoints: 5, Tasks: [][]int{{}, {}, {}, {0, 1, 2}}},
		},
	}
}

// distributions lists the named distributions of a Config in a fixed order.
func (c *Config) distributions() []struct {
	name string
	spec dist.Spec
} {
	return []struct {
		name string
		spec dist.Spec
	}{
		{StreamImplementationTime, c.ImplementationTime},
		{StreamReviewTime, c.ReviewTime},
		{StreamRemarkFixTime, c.RemarkFixTime},
		{StreamBugfixTime, c.BugfixTime},
		{StreamPlanningTime, c.PlanningTime},
		{StreamConflictResolutionTime, c.ConflictResolutionTime},
		{StreamDeveloperActivation, c.DeveloperActivationTime},
		{StreamCustomerActivation, c.CustomerActivationTime},
		{StreamGlobalSuspendTime, c.GlobalSuspendTime},
		{StreamImplementationSkill, c.ImplementationSkill},
		{StreamReviewSkill, c.ReviewSkill},
	}
}

// distributionRefs maps each distribution key to the field holding it.
func (c *Config) distributionRefs() map[string]*dist.Spec {
	return map[string]*dist.Spec{
		StreamImplementationTime:     &c.ImplementationTime,
		StreamReviewTime:             &c.ReviewTime,
		StreamRemarkFixTime:          &c.RemarkFixTime,
		StreamBugfixTime:             &c.BugfixTime,
		StreamPlanningTime:           &c.PlanningTime,
		StreamConflictResolutionTime: &c.ConflictResolutionTime,
		StreamDeveloperActivation:    &c.DeveloperActivationTime,
		StreamCustomerActivation:     &c.CustomerActivationTime,
		StreamGlobalSuspendTime:      &c.GlobalSuspendTime,
		StreamImplementationSkill:    &c.ImplementationSkill,
		StreamReviewSkill:            &c.ReviewSkill,
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !IsValidPolicy(string(c.Policy)) {
		return fmt.Errorf("unknown policy %q (want %q or %q)", c.Policy, PreCommit, PostCommit)
	}
	if c.Developers < 2 {
		return fmt.Errorf("developers must be >= 2 so that nobody reviews their own work, got %d", c.Developers)
	}
	if c.MaxPlanners < 1 {
		return fmt.Errorf("max_planners must be >= 1, got %d", c.MaxPlanners)
	}
	if c.MaxOpenStories < 0 {
		return fmt.Errorf("max_open_stories must be >= 0, got %d", c.MaxOpenStories)
	}
	for _, d := range c.distributions() {
		if _, err := dist.NewSampler(d.spec); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	for _, pr := range []struct {
		name string
		p    float64
	}{
		{"conflict_probability", c.ConflictProbability},
		{"global_defect_rate", c.GlobalDefectRate},
		{"developer_only_share", c.DeveloperOnlyShare},
	} {
		if pr.p < 0 || pr.p > 1 || math.IsNaN(pr.p) {
			return fmt.Errorf("%s must be in [0, 1], got %g", pr.name, pr.p)
		}
	}
	if c.GlobalDefectRate+c.DeveloperOnlyShare > 1 {
		return fmt.Errorf("global_defect_rate + developer_only_share must be <= 1, got %g",
			c.GlobalDefectRate+c.DeveloperOnlyShare)
	}
	if len(c.TaskGraphs) == 0 {
		return fmt.Errorf("task_graphs must contain at least one template")
	}
	for i, g := range c.TaskGraphs {
		if err := g.validate(); err != nil {
			return fmt.Errorf("task_graphs[%d]: %w", i, err)
		}
	}
	return nil
}

func (g TaskGraph) validate() error {
	if g.StoryPoints < 0 {
		return fmt.Errorf("story_points must be >= 0, got %d", g.StoryPoints)
	}
	if len(g.Tasks) == 0 {
		return fmt.Errorf("a story needs at least one task")
	}
	for i, prereqs := range g.Tasks {
		seen := make(map[int]bool, len(prereqs))
		for _, p := range prereqs {
			if p < 0 || p >= i {
				return fmt.Errorf("task %d: prerequisite %d must reference an earlier task", i, p)
			}
			if seen[p] {
				return fmt.Errorf("task %d: duplicate prerequisite %d", i, p)
			}
			seen[p] = true
		}
	}
	return nil
}

// LoadConfig reads a configuration file on top of DefaultConfig.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Unknown fields are rejected in both formats so typos surface as errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := DecodeConfig(data, strings.EqualFold(filepath.Ext(path), ".toml"), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig decodes data into cfg with strict field checking.
// A distribution named in data replaces the one in cfg as a whole.
func DecodeConfig(data []byte, isTOML bool, cfg *Config) error {
	var present map[string]any
	if isTOML {
		if err := toml.Unmarshal(data, &present); err != nil {
			return err
		}
	} else if err := yaml.Unmarshal(data, &present); err != nil {
		return err
	}
	for name, spec := range cfg.distributionRefs() {
		if _, ok := present[name]; ok {
			*spec = dist.Spec{}
		}
	}

	if isTOML {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// EncodeConfig renders cfg as YAML, or TOML when asTOML is set.
func EncodeConfig(cfg Config, asTOML bool) ([]byte, error) {
	if asTOML {
		return toml.Marshal(cfg)
	}
	return yaml.Marshal(cfg)
}
