package sensor

import "math/rand/v2"

// Generator produces the next value of a sensor from its previous one.
// Implementations are used by a single goroutine at a time.
type Generator interface {
	Next(prev float64) float64
}

// Uniform draws values uniformly from [Min, Max).
type Uniform struct {
	Min, Max float64
	rng      *rand.Rand
}

// NewUniform returns a uniform generator. A nil rng uses the global source.
func NewUniform(min, max float64, rng *rand.Rand) *Uniform {
	return &Uniform{Min: min, Max: max, rng: rng}
}

// Next ignores prev: readings are independent.
func (u *Uniform) Next(float64) float64 {
	return u.Min + float64v(u.rng)*(u.Max-u.Min)
}

// Bernoulli yields 1 with probability P, else 0, independently per call.
type Bernoulli struct {
	P   float64
	rng *rand.Rand
}

// NewBernoulli returns a Bernoulli generator. A nil rng uses the global source.
func NewBernoulli(p float64, rng *rand.Rand) *Bernoulli {
	return &Bernoulli{P: p, rng: rng}
}

// Next ignores prev: detections are independent.
func (b *Bernoulli) Next(float64) float64 {
	if float64v(b.rng) < b.P {
		return 1
	}
	return 0
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(prev float64) float64

func (f GeneratorFunc) Next(prev float64) float64 { return f(prev) }

// SeedGenerator returns the policy used for the single sample placed in a
// buffer when the dashboard is built.
func SeedGenerator(id string, rng *rand.Rand) Generator {
	if id == Motion {
		return NewBernoulli(0.5, rng)
	}
	return NewUniform(22, 26, rng)
}

// NewRand returns a deterministic random source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func float64v(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}
