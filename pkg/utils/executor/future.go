package executor

import (
	"sync"
)

type Future[T any] struct {
	done         chan struct{}
	value        T
	err          error
	defaultValue T
	mu           sync.Mutex
	callbacks    []func(T, error)
}

func newFuture[T any](defaultValue T) *Future[T] {
	return &Future[T]{
		done:         make(chan struct{}),
		defaultValue: defaultValue,
	}
}

func (f *Future[T]) complete(value T, err error) {
	f.mu.Lock()
	if err != nil {
		f.value, f.err = f.defaultValue, err
	} else {
		f.value = value
	}
	close(f.done)
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(f.value, f.err)
	}
}

// Get blocks until the task has finished.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// ThenAccept registers next to run once the result is known. If the task
// has already finished, next runs on the calling goroutine.
func (f *Future[T]) ThenAccept(next func(T, error)) {
	f.mu.Lock()
	if !f.IsDone() {
		f.callbacks = append(f.callbacks, next)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	next(f.value, f.err)
}

func (f *Future[T]) HandleError(handleError func(error)) {
	f.ThenAccept(func(_ T, err error) {
		if err != nil {
			handleError(err)
		}
	})
}

// GetAll waits for every future and returns the values in order, stopping at the first error.
func GetAll[T any](futures []*Future[T]) ([]T, error) {
	results := make([]T, len(futures))
	for i, fut := range futures {
		v, err := fut.Get()
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	return results, nil
}
