package fwd

import (
	"context"
	"sync"
)

// RunInBackground starts run (typically a *dispatch.Dispatcher's Run
// method) on its own goroutine behind a ready-channel-and-WaitGroup
// start/stop barrier, the same role the original metis forwarder's
// metis_ThreadedForwarder.c plays wrapping the whole forwarder to run
// on its own thread behind a condition variable (§5's "sub-process
// forwarder variant", §9). run is taken as a plain function rather than
// a *dispatch.Dispatcher to avoid an import of package dispatch, which
// already imports fwd.
//
// The returned stop function cancels run's context and blocks until
// run has returned.
func RunInBackground(ctx context.Context, run func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	ready := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(ready)
		run(ctx)
	}()

	<-ready
	return func() {
		cancel()
		wg.Wait()
	}
}
