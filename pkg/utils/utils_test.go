package utils

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeHeap(t *testing.T) {
	h := NewSafeHeap(func(a, b float64) bool {
		return a < b
	})
	for _, v := range []float64{3.5, 0.25, 7, 1, 1} {
		h.Push(v)
	}
	if h.Size() != 5 {
		t.Fatalf("Expected 5 elements, got %d", h.Size())
	}
	v, ok := h.Pop()
	require.True(t, ok)
	require.Equal(t, 0.25, v)
	require.Equal(t, []float64{1, 1, 3.5, 7}, h.Drain())
	require.True(t, h.Empty())

	_, ok = h.Pop()
	require.False(t, ok)
}

func TestSort(t *testing.T) {
	items := []int64{9, 3, 5, 1, 8, 2}
	SortOrdered(items)
	require.Equal(t, []int64{1, 2, 3, 5, 8, 9}, items)

	words := []string{"bb", "a", "ccc"}
	Sort(words, func(a, b string) bool {
		return len(a) > len(b)
	})
	require.Equal(t, []string{"ccc", "bb", "a"}, words)
}

func TestRandomSubset(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}
	original := Copy(items)
	sub := RandomSubset(r, items, 5)
	require.Len(t, sub, 5)
	require.Len(t, RemoveDuplicates(sub), 5)
	require.Subset(t, items, sub)
	require.Equal(t, original, items, "input must not be shuffled in place")
}

func TestWeightedSubset(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	weights := []float64{0, 1, 0, 3, 0}
	for i := 0; i < 50; i++ {
		idx := WeightedIndex(r, weights)
		if idx != 1 && idx != 3 {
			t.Fatalf("index %d has zero weight", idx)
		}
	}
	sub := WeightedSubset(r, weights, 4)
	require.ElementsMatch(t, []int{1, 3}, sub)
}

func TestStream(t *testing.T) {
	s := NewStream([]int{1, 2, 3, 4}).Filter(func(i int) bool {
		return i%2 == 0
	})
	require.Equal(t, []int{2, 4}, s.Values())
	f := s.MapToFloat64(func(i int) float64 { return float64(i) / 2 })
	require.Equal(t, []float64{1, 2}, f.Values())
	require.Equal(t, []string{"a", "b"}, SortedKeys(map[string]int{"b": 1, "a": 2}))
	require.Equal(t, 3, FindIndex([]int{5, 6, 7, 8}, func(i int) bool { return i > 7 }))
}
