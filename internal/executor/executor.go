package executor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task processes one unit of work identified by its index.
type Task func(ctx context.Context, index int) error

// Pool admits tasks under a fixed concurrency budget. Admission is a
// counting semaphore: a task starts as soon as a permit is free, with no
// ordering guarantee across indices. The zero value is not usable; use New.
type Pool struct {
	sem   *semaphore.Weighted
	limit int
}

// New returns a Pool admitting at most limit tasks in flight concurrently
// (<= 0 treated as 1).
func New(limit int) *Pool {
	if limit <= 0 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Limit reports the pool's concurrency budget.
func (p *Pool) Limit() int { return p.limit }

// Run launches n tasks and blocks until every launched task has returned.
// Each task runs in its own goroutine once it acquires a permit; the permit
// is released on every exit path, including panics unwinding through the
// task. Errors are collected, not fatal: Run keeps launching the remaining
// tasks and reports the first error observed after the join. A context
// cancellation during admission stops further launches and is reported the
// same way.
func (p *Pool) Run(ctx context.Context, n int, task Task) error {
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	record := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	for i := 0; i < n; i++ {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			record(fmt.Errorf("executor: acquire permit: %w", err))
			break
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer p.sem.Release(1)
			if err := task(ctx, idx); err != nil {
				record(fmt.Errorf("executor: task %d: %w", idx, err))
			}
		}(i)
	}
	wg.Wait()
	return firstErr
}
