package dist

import (
	"fmt"
	"math"
	"math/rand"
)

// Stream binds a sampler to its own random source.
// Every named distribution of a model draws from a dedicated Stream so that
// the number of draws from one never perturbs another.
type Stream struct {
	Name    string
	Spec    Spec
	sampler Sampler
	rng     *rand.Rand
}

// NewStream builds the sampler for spec and binds it to rng.
func NewStream(name string, spec Spec, rng *rand.Rand) (*Stream, error) {
	s, err := NewSampler(spec)
	if err != nil {
		return nil, fmt.Errorf("distribution %s: %w", name, err)
	}
	return &Stream{Name: name, Spec: spec, sampler: s, rng: rng}, nil
}

// Sample draws a raw value.
func (s *Stream) Sample() float64 {
	return s.sampler.Sample(s.rng)
}

// Ticks draws a duration rounded to whole ticks, never negative.
func (s *Stream) Ticks() int64 {
	v := math.Round(s.Sample())
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int64(v)
}

// Probability draws a value clamped to [0, 1].
func (s *Stream) Probability() float64 {
	return math.Min(1, math.Max(0, s.Sample()))
}

// NonNegative draws a value clamped to [0, +inf).
func (s *Stream) NonNegative() float64 {
	return math.Max(0, s.Sample())
}

// Bernoulli is a probability source for yes/no draws.
type Bernoulli struct {
	Name string
	p    float64
	rng  *rand.Rand
}

// NewBernoulli returns a coin that lands true with probability p.
func NewBernoulli(name string, p float64, rng *rand.Rand) (*Bernoulli, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return nil, fmt.Errorf("probability %s must be in [0, 1], got %g", name, p)
	}
	return &Bernoulli{Name: name, p: p, rng: rng}, nil
}

// P returns the success probability.
func (b *Bernoulli) P() float64 { return b.p }

// Draw flips the coin. A probability of 1 always succeeds, 0 never does.
func (b *Bernoulli) Draw() bool {
	return b.rng.Float64() < b.p
}

// DrawWith flips a coin with probability p on b's random source.
func (b *Bernoulli) DrawWith(p float64) bool {
	return b.rng.Float64() < p
}
