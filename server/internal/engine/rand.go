package engine

import "math/rand/v2"

// Rand is the random source the engine draws from. Float64 must return a
// value in [0, 1).
//
// The engine draws only from the goroutine running a tick, so
// implementations need not be safe for concurrent use.
type Rand interface {
	Float64() float64
}

// NewRand returns a PCG-backed Rand. A zero seed selects a random seed.
func NewRand(seed uint64) Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// intIn returns an integer drawn uniformly from [lo, hi).
func intIn(r Rand, lo, hi int) int {
	return lo + int(r.Float64()*float64(hi-lo))
}
