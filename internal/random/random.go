// Package random supplies the uniform draws the injury model consumes.
//
// The engine never touches a global generator. Hosts pass a Source built from
// a fixed seed for reproducible seasons, or from NewSeed for live play.
package random

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// Source yields uniform draws in [0, 1).
type Source interface {
	Float64() float64
}

// NewSeeded returns a deterministic PCG source for a seed.
func NewSeeded(seed int64) *rand.Rand {
	// Non-cryptographic PRNG is intentional for deterministic simulation behavior.
	// #nosec G404
	return rand.New(rand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b")))
}

// Derive returns an independent deterministic source for one athlete of a seeded season.
func Derive(seed int64, key string) *rand.Rand {
	// #nosec G404
	return rand.New(rand.NewPCG(seedWord(seed, key+":a"), seedWord(seed, key+":b")))
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}
