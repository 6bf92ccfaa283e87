package pipeline

import (
	"context"
	"sync"
)

// ProcessParallel runs fn over items on a fixed pool of workers. Results keep
// the order of items. The first error cancels the remaining work and is
// returned.
func ProcessParallel[T, R any](ctx context.Context, workerCount int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(items) {
		workerCount = len(items)
	}

	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobChan := make(chan int, len(items))
	errChan := make(chan error, workerCount)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					return
				}
				res, err := fn(ctx, items[idx])
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					cancel()
					return
				}
				results[idx] = res
			}
		}()
	}

	// jobChan is buffered for every item so enqueueing never blocks.
	for idx := range items {
		jobChan <- idx
	}
	close(jobChan)

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
