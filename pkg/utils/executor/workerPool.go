package executor

import (
	"runtime"
	"sync"
)

// WorkerPool runs submitted tasks on at most maxWorkers goroutines.
type WorkerPool struct {
	taskQueue chan func()
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewWorkerPool sizes the pool to the number of usable CPUs.
func NewWorkerPool() *WorkerPool {
	return NewWorkerPoolWithMax(runtime.GOMAXPROCS(0))
}

func NewWorkerPoolWithMax(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	wp := &WorkerPool{
		taskQueue: make(chan func(), maxWorkers),
	}
	wp.wg.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		task()
	}
}

// SubmitWithError schedules task and returns a Future holding its result.
// defaultValue is returned by Get when the task fails.
func SubmitWithError[T any](wp *WorkerPool, defaultValue T, task func() (T, error)) *Future[T] {
	fut := newFuture(defaultValue)
	wp.taskQueue <- func() {
		fut.complete(task())
	}
	return fut
}

// Stop waits for queued tasks to finish and releases the workers.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.taskQueue)
	})
	wp.wg.Wait()
}
