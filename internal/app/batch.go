package app

import (
	"context"
	"sync"
	"time"
)

// ForEachBatch applies fn to every item with at most limit workers in flight.
// Items run in fixed-size batches: batch i fully settles before batch i+1
// starts, with a context-aware pause between batches so a burst of outbound
// fetches does not hammer the backend. fn is expected to absorb its own
// failures and record a sentinel result; ForEachBatch never aborts early on
// a worker's behalf, only on context cancellation.
func ForEachBatch[T any](ctx context.Context, items []T, limit int, pause time.Duration, fn func(context.Context, T)) {
	if limit <= 0 {
		limit = 1
	}
	for start := 0; start < len(items); start += limit {
		if ctx.Err() != nil {
			return
		}
		end := start + limit
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for _, it := range items[start:end] {
			it := it
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn(ctx, it)
			}()
		}
		wg.Wait()

		if end < len(items) && !sleepCtx(ctx, pause) {
			return
		}
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
