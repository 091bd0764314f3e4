package execshell

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// runDispatcher bounds the number of concurrently executing asynchronous
// runs. Saturation delays the start of a queued run without ever blocking the
// submitting caller.
type runDispatcher struct {
	concurrencySlots *semaphore.Weighted
}

// defaultRunDispatcher serves executors that were not given their own
// dispatcher, bounding asynchronous runs process-wide.
var defaultRunDispatcher = newRunDispatcher(0)

func newRunDispatcher(concurrencyLimit int) *runDispatcher {
	if concurrencyLimit <= 0 {
		concurrencyLimit = runtime.GOMAXPROCS(0)
	}
	return &runDispatcher{concurrencySlots: semaphore.NewWeighted(int64(concurrencyLimit))}
}

// dispatch schedules the task on its own goroutine once a concurrency slot
// becomes available. A context cancelled while the task is still queued is
// reported through the failed callback instead of running the task.
func (dispatcher *runDispatcher) dispatch(executionContext context.Context, task func(), failed func(error)) {
	go func() {
		if acquireError := dispatcher.concurrencySlots.Acquire(executionContext, 1); acquireError != nil {
			if failed != nil {
				failed(acquireError)
			}
			return
		}
		defer dispatcher.concurrencySlots.Release(1)

		task()
	}()
}
