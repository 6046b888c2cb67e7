// Package executor provides a fixed-size worker pool fed by a bounded queue.
// Submission blocks when the queue is full, so saturated delivery throttles
// producers instead of growing memory or dropping work.
package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by Execute once shutdown has begun.
var ErrStopped = errors.New("executor stopped")

// DefaultWorkers is the pool size used when the caller does not specify one.
const DefaultWorkers = 50

// Task is one unit of dispatch work. Implementations capture their inputs by
// value; there is no cancellation, a task runs to completion once dequeued.
type Task interface {
	Run()
}

// Bounded is the blocking worker pool.
type Bounded struct {
	tasks     chan Task
	executing atomic.Int64
	wg        sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// New starts workers goroutines draining a queue of capacity queueSize.
// queueSize must be positive; a zero-capacity configuration means the owner
// should not construct a pool at all.
func New(workers, queueSize int) *Bounded {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	b := &Bounded{tasks: make(chan Task, queueSize)}
	b.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go b.worker()
	}
	return b
}

// Execute enqueues t, blocking the caller while the queue is full. It returns
// ErrStopped if shutdown has begun.
func (b *Bounded) Execute(t Task) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrStopped
	}
	b.tasks <- t
	return nil
}

// Size reports the number of tasks queued plus executing. It is sampled on
// demand as a gauge. A producer blocked on a full queue is not counted until
// its task is admitted.
func (b *Bounded) Size() int64 {
	return int64(len(b.tasks)) + b.executing.Load()
}

// Stop ceases intake and waits for queued and in-flight tasks to finish, or
// for ctx to expire, whichever comes first. Workers are not interrupted
// mid-task; an expired ctx abandons the wait, not the work.
func (b *Bounded) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	close(b.tasks)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bounded) worker() {
	defer b.wg.Done()
	for t := range b.tasks {
		b.executing.Add(1)
		t.Run()
		b.executing.Add(-1)
	}
}
