package utils

import (
	"sync"

	pq "github.com/emirpasic/gods/queues/priorityqueue"
)

// SafeHeap is a min-heap ordered by less. Elements that compare equal come
// out in an unspecified but deterministic order.
type SafeHeap[T any] struct {
	p  *pq.Queue
	mu sync.RWMutex
}

func NewSafeHeap[T any](less func(a, b T) bool) *SafeHeap[T] {
	return &SafeHeap[T]{
		p: pq.NewWith(Comparator(less)),
	}
}

func (sh *SafeHeap[T]) Push(value T) {
	sh.mu.Lock()
	sh.p.Enqueue(value)
	sh.mu.Unlock()
}

func (sh *SafeHeap[T]) Pop() (T, bool) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.pop()
}

func (sh *SafeHeap[T]) pop() (T, bool) {
	var zero T
	v, ok := sh.p.Dequeue()
	if !ok {
		return zero, false
	}
	return v.(T), true
}

func (sh *SafeHeap[T]) Size() int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.p.Size()
}

func (sh *SafeHeap[T]) Empty() bool {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.p.Empty()
}

// Drain pops every element in heap order.
func (sh *SafeHeap[T]) Drain() []T {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	values := make([]T, 0, sh.p.Size())
	for {
		v, ok := sh.pop()
		if !ok {
			return values
		}
		values = append(values, v)
	}
}

func Comparator[T any](less func(T, T) bool) func(interface{}, interface{}) int {
	return func(a, b interface{}) int {
		if less(a.(T), b.(T)) {
			return -1
		} else if less(b.(T), a.(T)) {
			return 1
		}
		return 0
	}
}
