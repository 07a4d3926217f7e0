package sim

import (
	"hash/fnv"
	"math/rand"
)

// Subsystem names for partitioned RNG derivation. Each dynamics provider
// draws from its own stream so adding or removing one provider cannot
// perturb another's sequence.
const (
	SubsystemHumanForces           = "human_forces"
	SubsystemInstitutionalPressure = "institutional_pressure"
	SubsystemPerceptionWarfare     = "perception_warfare"
	SubsystemRedTeam               = "red_team"
)

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem, derived from one master seed: masterSeed XOR fnv1a64(name).
//
// Thread-safety: NOT thread-safe. The engine is single-threaded by contract.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same name always returns the same cached *rand.Rand.
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derived := p.seed ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derived))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed this PartitionedRNG was created from.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
