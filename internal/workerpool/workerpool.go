// Package workerpool bounds concurrent fan-out to a fixed width, the
// pattern the engine uses to run gateway queries for many candidates/pairs
// at once without overrunning the database connection pool. Grounded on
// pkg/api/server.go's withMiddleware semaphore
// (`sem := make(chan struct{}, cfg.MaxConcurrent)`), generalized from
// "bound concurrent HTTP handlers" to "bound concurrent worker
// invocations and join on completion."
package workerpool

import "context"

// Run invokes worker once per item, at most width invocations running
// concurrently, and returns after every item has been processed (or ctx is
// canceled). The first non-nil error from any worker is returned; other
// in-flight workers still run to completion before Run returns.
func Run[T any](ctx context.Context, items []T, width int, worker func(context.Context, T) error) error {
	if width < 1 {
		width = 1
	}

	sem := make(chan struct{}, width)
	errCh := make(chan error, len(items))

	for _, item := range items {
		item := item
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errCh <- ctx.Err()
			continue
		}

		go func() {
			defer func() { <-sem }()
			errCh <- worker(ctx, item)
		}()
	}

	var firstErr error
	for range items {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
