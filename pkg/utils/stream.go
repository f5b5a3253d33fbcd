package utils

import (
	"cmp"

	"github.com/jfcg/sorty/v2"
)

type Stream[T any] struct {
	Array []T
}

// Values returns the elements left in the stream.
func (s *Stream[T]) Values() []T {
	return s.Array
}

func NewStream[T any](values []T) *Stream[T] {
	return &Stream[T]{
		Array: values,
	}
}

func (s *Stream[T]) Filter(condition func(T) bool) *Stream[T] {
	return &Stream[T]{
		Array: Filter(s.Array, condition),
	}
}

func (s *Stream[T]) MapToFloat64(f func(T) float64) *Stream[float64] {
	return &Stream[float64]{
		Array: Map(s.Array, f),
	}
}

func Filter[V any](values []V, condition func(V) bool) []V {
	filtered := make([]V, 0, len(values))
	for _, v := range values {
		if condition(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

func Map[T any, O any](items []T, f func(T) O) []O {
	result := make([]O, len(items))
	for i, item := range items {
		result[i] = f(item)
	}
	return result
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	SortOrdered(keys)
	return keys
}

func FindIndex[T any](items []T, f func(T) bool) int {
	for i, item := range items {
		if f(item) {
			return i
		}
	}
	return -1
}

func RemoveDuplicates[T comparable](items []T) []T {
	seen := make(map[T]bool, len(items))
	result := make([]T, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}

func Copy[T any](items []T) []T {
	c := make([]T, len(items))
	copy(c, items)
	return c
}

func Sort[T any](items []T, less func(T, T) bool) {
	lesswap := func(i, k, r, s int) bool {
		if less(items[i], items[k]) {
			if r != s {
				items[r], items[s] = items[s], items[r]
			}
			return true
		}
		return false
	}
	sorty.Sort(len(items), lesswap)
}

func SortOrdered[T cmp.Ordered](items []T) {
	Sort(items, func(a, b T) bool {
		return a < b
	})
}
