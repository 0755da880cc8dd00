package sim

import (
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === PartitionedRNG ===

// PartitionedRNG provides one deterministic, isolated stream per name.
//
// Derivation formula: masterSeed XOR fnv1a64(streamName).
// Draws from one stream never shift the sequence of another, so adding a
// new distribution to the model leaves existing trajectories intact.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:     key,
		streams: make(map[string]*rand.Rand),
	}
}

// Stream returns the deterministically-seeded RNG for the named stream.
// The same name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) Stream(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.streams[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
