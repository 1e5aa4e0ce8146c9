// Package workerpool runs independent, index-addressed jobs on a bounded set
// of goroutines. Batch analyses use it for Monte Carlo draws and walk-forward
// windows: every job owns its result slot, so aggregation happens only after
// the join and no locking is needed on the hot path.
package workerpool

import (
	"context"
	"runtime"
	"sync"
)

// Run executes fn(0..n-1) on at most workers goroutines and blocks until all
// jobs finish or the context is cancelled. Job errors do not stop the batch;
// they are returned indexed by job so callers can mark and exclude failed
// units. A cancelled context stops dispatching and returns ctx.Err().
func Run(ctx context.Context, n, workers int, fn func(i int) error) ([]error, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = fn(i)
			}
		}()
	}

	var cancelled error
dispatch:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	return errs, nil
}
