// Package dist turns configured distribution specs into samplers.
// Durations are drawn in ticks; probabilities and rates are drawn as plain values.
package dist

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Sampler draws a value from a distribution.
type Sampler interface {
	// Sample returns a finite value; the caller owns clamping to its domain.
	Sample(rng *rand.Rand) float64
}

// Spec parameterizes a distribution. Loaded from YAML or TOML.
type Spec struct {
	Type   string             `yaml:"type" toml:"type" json:"type"`
	Params map[string]float64 `yaml:"params,omitempty" toml:"params,omitempty" json:"params,omitempty"`
}

// String renders the spec for logs.
func (s Spec) String() string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := s.Type + "("
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%g", k, s.Params[k])
	}
	return out + ")"
}

// Constant is a shorthand for a constant spec.
func Constant(v float64) Spec {
	return Spec{Type: "constant", Params: map[string]float64{"value": v}}
}

// Exponential is a shorthand for an exponential spec.
func Exponential(mean float64) Spec {
	return Spec{Type: "exponential", Params: map[string]float64{"mean": mean}}
}

// ConstantSampler always returns the same fixed value.
type ConstantSampler struct {
	value float64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) float64 {
	return s.value
}

// UniformSampler draws uniformly from [min, max).
type UniformSampler struct {
	min, max float64
}

func (s *UniformSampler) Sample(rng *rand.Rand) float64 {
	return s.min + rng.Float64()*(s.max-s.min)
}

// ExponentialSampler produces exponentially-distributed values.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() * s.mean
}

// GaussianSampler produces clamped Gaussian values.
type GaussianSampler struct {
	mean, stdDev float64
	min, max     float64
}

func (s *GaussianSampler) Sample(rng *rand.Rand) float64 {
	if s.min == s.max {
		return s.min
	}
	val := rng.NormFloat64()*s.stdDev + s.mean
	return math.Min(s.max, math.Max(s.min, val))
}

// LogNormalSampler produces exp(mu + sigma*Z).
type LogNormalSampler struct {
	mu    float64 // mean of ln(X)
	sigma float64 // std dev of ln(X)
}

func (s *LogNormalSampler) Sample(rng *rand.Rand) float64 {
	val := math.Exp(s.mu + s.sigma*rng.NormFloat64())
	// Guard against +Inf from extreme sigma values
	if math.IsInf(val, 0) || math.IsNaN(val) {
		return math.MaxInt32
	}
	return val
}

// TriangularSampler draws from a triangular distribution on [min, max] with the given mode.
type TriangularSampler struct {
	min, mode, max float64
}

func (s *TriangularSampler) Sample(rng *rand.Rand) float64 {
	if s.min == s.max {
		return s.min
	}
	u := rng.Float64()
	c := (s.mode - s.min) / (s.max - s.min)
	if u < c {
		return s.min + math.Sqrt(u*(s.max-s.min)*(s.mode-s.min))
	}
	return s.max - math.Sqrt((1-u)*(s.max-s.min)*(s.max-s.mode))
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// NewSampler creates a Sampler from a Spec.
func NewSampler(spec Spec) (Sampler, error) {
	switch spec.Type {
	case "constant":
		if err := requireParam(spec.Params, "value"); err != nil {
			return nil, err
		}
		return &ConstantSampler{value: spec.Params["value"]}, nil

	case "uniform":
		if err := requireParam(spec.Params, "min", "max"); err != nil {
			return nil, err
		}
		lo, hi := spec.Params["min"], spec.Params["max"]
		if hi < lo {
			return nil, fmt.Errorf("uniform: max %g < min %g", hi, lo)
		}
		return &UniformSampler{min: lo, max: hi}, nil

	case "exponential":
		if err := requireParam(spec.Params, "mean"); err != nil {
			return nil, err
		}
		if spec.Params["mean"] < 0 {
			return nil, fmt.Errorf("exponential: negative mean %g", spec.Params["mean"])
		}
		return &ExponentialSampler{mean: spec.Params["mean"]}, nil

	case "gaussian":
		if err := requireParam(spec.Params, "mean", "std_dev", "min", "max"); err != nil {
			return nil, err
		}
		if spec.Params["max"] < spec.Params["min"] {
			return nil, fmt.Errorf("gaussian: max %g < min %g", spec.Params["max"], spec.Params["min"])
		}
		return &GaussianSampler{
			mean:   spec.Params["mean"],
			stdDev: spec.Params["std_dev"],
			min:    spec.Params["min"],
			max:    spec.Params["max"],
		}, nil

	case "lognormal":
		if err := requireParam(spec.Params, "mu", "sigma"); err != nil {
			return nil, err
		}
		return &LogNormalSampler{mu: spec.Params["mu"], sigma: spec.Params["sigma"]}, nil

	case "triangular":
		if err := requireParam(spec.Params, "min", "mode", "max"); err != nil {
			return nil, err
		}
		lo, mode, hi := spec.Params["min"], spec.Params["mode"], spec.Params["max"]
		if !(lo <= mode && mode <= hi) {
			return nil, fmt.Errorf("triangular: need min <= mode <= max, got %g, %g, %g", lo, mode, hi)
		}
		return &TriangularSampler{min: lo, mode: mode, max: hi}, nil

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}
