package pipeline

import (
	"context"
	"runtime"
	"sync"
)

// Func processes one item. Each call must own its inputs; items are handed to
// workers concurrently.
type Func[T any] func(ctx context.Context, item T) error

// Run applies fn to every item on a bounded number of workers and returns the
// errors of the calls that failed. If ctx is cancelled, undispatched items are
// skipped and ctx.Err() is included once.
func Run[T any](ctx context.Context, items []T, workers int, fn Func[T]) []error {
	if len(items) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan T)
	errs := make(chan error, len(items)+1)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if err := fn(ctx, item); err != nil {
					errs <- err
				}
			}
		}()
	}

dispatch:
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			errs <- err
			break
		}
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			break dispatch
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	out := make([]error, 0, len(errs))
	for err := range errs {
		out = append(out, err)
	}
	return out
}
