package utils

import (
	"math/rand"

	"golang.org/x/exp/constraints"
)

func RandomElement[T any](r *rand.Rand, elements []T) (element T) {
	return elements[r.Intn(len(elements))]
}

// GetShuffledCopy returns a permutation of items drawn from r; items is left untouched.
func GetShuffledCopy[T any](r *rand.Rand, items []T) []T {
	c := Copy(items)
	r.Shuffle(len(c), func(i, j int) {
		c[i], c[j] = c[j], c[i]
	})
	return c
}

// RandomSubset picks n distinct positions of items uniformly at random.
func RandomSubset[T any](r *rand.Rand, items []T, n int) []T {
	if n >= len(items) {
		return GetShuffledCopy(r, items)
	}
	return GetShuffledCopy(r, items)[:n]
}

// WeightedIndex draws an index with probability proportional to weights.
// The weights must be non-negative and sum to a positive value.
func WeightedIndex(r *rand.Rand, weights []float64) int {
	total := SumFloat(weights)
	x := r.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if x < acc {
			return i
		}
	}
	// rounding left x at the very top of the range
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return len(weights) - 1
}

// WeightedSubset draws n distinct indices, each one proportional to the
// weights of the indices not drawn yet.
func WeightedSubset(r *rand.Rand, weights []float64, n int) []int {
	w := Copy(weights)
	chosen := make([]int, 0, n)
	for len(chosen) < n && SumFloat(w) > 0 {
		i := WeightedIndex(r, w)
		chosen = append(chosen, i)
		w[i] = 0
	}
	return chosen
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func SumFloat(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}
