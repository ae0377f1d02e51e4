// Package sampler produces the synthetic live metric stream.
//
// Each call to [Sampler.Sample] derives the next [speech.Snapshot] from the
// previous one by a bounded random walk: every bounded field moves by a
// uniform delta of at most half its step and is clamped to its range, and
// every filler word count moves by -1, 0 or +1 and never drops below zero.
// Successive readings are therefore correlated and always within range.
package sampler

import (
	"math/rand/v2"
	"time"

	"github.com/MrWong99/podium/pkg/speech"
)

// Source supplies uniform random numbers. *rand.Rand satisfies it.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
}

// Sampler computes the next reading of every live metric. It keeps no state
// besides its random source; a Sampler must not be shared between goroutines
// unless its Source is safe for concurrent use.
type Sampler struct {
	specs speech.Specs
	rng   Source
}

// Option configures a [Sampler].
type Option func(*Sampler)

// WithSource replaces the random source. Useful for deterministic tests.
func WithSource(src Source) Option {
	return func(s *Sampler) {
		if src != nil {
			s.rng = src
		}
	}
}

// WithSeed seeds a PCG source so the produced stream is reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Sampler) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// New returns a Sampler walking the given field specs. Specs are expected to
// have passed [speech.Specs.Validate].
func New(specs speech.Specs, opts ...Option) *Sampler {
	seed := uint64(time.Now().UnixNano())
	s := &Sampler{
		specs: specs,
		rng:   rand.New(rand.NewPCG(seed, seed>>1)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Specs returns the field specs this sampler walks.
func (s *Sampler) Specs() speech.Specs {
	return s.specs
}

// Sample returns the reading that follows prev. prev is not modified.
func (s *Sampler) Sample(prev speech.Snapshot) speech.Snapshot {
	next := prev.Clone()
	for _, f := range speech.Fields {
		spec := s.specs[f]
		delta := (s.rng.Float64() - 0.5) * spec.Step
		next.Set(f, spec.Clamp(prev.Get(f)+delta))
	}
	for i := range next.FillerWords {
		step := s.rng.IntN(3) - 1
		next.FillerWords[i].Count = max(0, next.FillerWords[i].Count+step)
	}
	return next
}
