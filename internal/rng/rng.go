// Package rng provides the shared random source for parameter
// initialization, noise, evolutionary mutation and corpus shuffling.
package rng

import (
	"math/rand"
	"time"
)

var source = rand.New(rand.NewSource(time.Now().UnixNano()))

// Seed reseeds the shared source. Tests use this for reproducible runs.
func Seed(seed int64) {
	source = rand.New(rand.NewSource(seed))
}

// FloatIncl returns a uniformly distributed float in [min, max].
func FloatIncl(min, max float32) float32 {
	return min + source.Float32()*(max-min)
}

// Idx returns a uniformly distributed index in [0, n).
func Idx(n int) int {
	return source.Intn(n)
}

// BiasedCoinToss returns true with probability a/(a+b).
// Used to pick between weight and bias mutation proportionally
// to how many of each a layer owns.
func BiasedCoinToss(a, b float32) bool {
	return FloatIncl(0, a+b) < a
}

// Shuffle performs a Fisher-Yates shuffle using the shared source.
func Shuffle(n int, swap func(i, j int)) {
	source.Shuffle(n, swap)
}
