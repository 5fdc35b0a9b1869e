package dynamics

import (
	"math/rand/v2"
)

// seedMix spreads consecutive run indexes across the PCG stream space
const seedMix = 0x9E3779B97F4A7C15

// NewSource returns a deterministic random source for seed. Each generator
// owns its source; sources are never shared between concurrent runs.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedMix))
}

// SeedForRun derives the seed of run index from a base seed, so every run in
// a Monte Carlo batch is reproducible on its own.
func SeedForRun(base uint64, index int) uint64 {
	return base + uint64(index+1)*seedMix
}
