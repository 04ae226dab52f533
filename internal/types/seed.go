package types

import (
	"math/rand/v2"
	"time"
)

// NewRand returns a PCG-backed source for seed. A zero seed draws one from
// the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}
