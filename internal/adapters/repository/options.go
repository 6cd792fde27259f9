package repository

import "math/rand"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithRand injects the random source used for capped sampling. Tests pass a
// fixed-seed source to make sampling deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *MemoryStore) {
		if rng != nil {
			s.rng = rng
		}
	}
}
