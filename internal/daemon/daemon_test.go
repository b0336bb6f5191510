package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunEveryRunsFirstCycleImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan struct{})
	go func() {
		RunEvery(ctx, time.Hour, 0, func(context.Context) {
			calls.Add(1)
			cancel()
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery did not return after cancel")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("cycles = %d, want 1", got)
	}
}

func TestRunEveryBoundsCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deadline := make(chan bool, 1)
	go RunEvery(ctx, time.Hour, time.Minute, func(cctx context.Context) {
		_, ok := cctx.Deadline()
		deadline <- ok
		cancel()
	})

	select {
	case ok := <-deadline:
		if !ok {
			t.Error("cycle context has no deadline, want one minute timeout")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cycle never ran")
	}
}
