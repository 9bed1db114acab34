// Package rng wraps a single math/rand source with the draws the simulation
// engine needs, so every stochastic component in a simulation shares one
// stream and one owner.
package rng

import "math/rand"

// Stream is the single RNG owned by an orchestrator for the lifetime of one
// simulation. It is not safe for concurrent use; per the concurrency model,
// only the orchestrator goroutine ever calls it.
type Stream struct {
	r    *rand.Rand
	seed int64
}

// New builds a stream from the given seed. A seed of 0 is a valid,
// reproducible seed like any other -- callers that want a random seed should
// pick one themselves (e.g. from time.Now().UnixNano()) before calling New.
func New(seed int64) *Stream {
	return &Stream{r: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed this stream was constructed with.
func (s *Stream) Seed() int64 { return s.seed }

// Exp draws an inter-event time from an exponential distribution with the
// given rate (events per unit time). Rate must be positive.
func (s *Stream) Exp(rate float64) float64 {
	if rate <= 0 {
		rate = 1e-9
	}
	return s.r.ExpFloat64() / rate
}

// Gaussian draws from N(mean, std).
func (s *Stream) Gaussian(mean, std float64) float64 {
	return mean + s.r.NormFloat64()*std
}

// Uniform draws from [0, 1).
func (s *Stream) Uniform() float64 {
	return s.r.Float64()
}

// UniformN draws a uniform integer in [0, n).
func (s *Stream) UniformN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.Intn(n)
}

// Float64 exposes the raw uniform draw for callers that just need a coin
// flip without the Uniform() naming.
func (s *Stream) Float64() float64 { return s.r.Float64() }
