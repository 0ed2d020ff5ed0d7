package innerloop

import (
	"context"
	"sync"
)

// GatherWithLimit runs fn over items with at most limit concurrent
// goroutines, preserving the original order of results. A failing fn call
// leaves the zero value of R at that index rather than aborting the rest
// — callers are responsible for logging/swallowing fn's error.
//
// Grounded on agents.SupervisorAgent.executeParallelResearch's
// semaphore-plus-waitgroup shape (teacher), simplified since this package
// has no ordering-sensitive state mutation to serialize afterward.
func GatherWithLimit[T any, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []R {
	if limit <= 0 {
		limit = 1
	}
	results := make([]R, len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			r, err := fn(ctx, it)
			if err != nil {
				return
			}
			results[idx] = r
		}(i, item)
	}

	wg.Wait()
	return results
}
