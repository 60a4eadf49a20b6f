// Package random provides seed generation for the seeded pseudo-random
// sources used by problem generation.
//
// Generation itself is deterministic for a given seed; only the seed is drawn
// from crypto/rand so live problems are not predictable across requests.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
)

// SeedFunc produces a seed for one generation request.
type SeedFunc func() (int64, error)

// NewSeed generates a non-negative random seed using crypto/rand.
func NewSeed() (int64, error) {
	return seedFrom(crand.Reader)
}

func seedFrom(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1), nil
}

// NewRand returns a math/rand source seeded with seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// IntBetween draws a uniform integer in [lo, hi]. When hi < lo it returns lo.
func IntBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
