package gopool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

var (
	// Init a instance pool when importing ants.
	defaultPool, _   = ants.NewPool(ants.DefaultAntsPoolSize, ants.WithExpiryDuration(10*time.Second))
	minNumberPerTask = 5
)

// Submit submits a task to pool.
func Submit(task func()) error {
	return defaultPool.Submit(task)
}

// Cap returns the capacity of this default pool.
func Cap() int {
	return defaultPool.Cap()
}

// Release closes the default pool. Tasks submitted afterwards fail.
func Release() {
	defaultPool.Release()
}

// Threads returns the number of workers worth starting for the given
// number of tasks, at most one per CPU and no more than the pool holds.
func Threads(tasks int) int {
	threads := tasks / minNumberPerTask
	if threads > runtime.NumCPU() {
		threads = runtime.NumCPU()
	} else if threads == 0 {
		threads = 1
	}
	return min(threads, Cap())
}

// ForEach calls fn for every index in [0, n) on Threads(n) pooled workers
// and waits for them. Indexes not yet started when ctx is done are skipped
// and the context error is returned.
func ForEach(ctx context.Context, n int, fn func(i int)) error {
	if n <= 0 {
		return ctx.Err()
	}
	var (
		next int64 = -1
		wg   sync.WaitGroup
	)
	worker := func() {
		defer wg.Done()
		for ctx.Err() == nil {
			i := int(atomic.AddInt64(&next, 1))
			if i >= n {
				return
			}
			fn(i)
		}
	}
	for t := Threads(n); t > 0; t-- {
		wg.Add(1)
		if err := Submit(worker); err != nil {
			// The pool is closed or overloaded, run on the caller.
			worker()
		}
	}
	wg.Wait()
	return ctx.Err()
}
