package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestImmediateFirstFetch(t *testing.T) {
	var calls atomic.Int64
	r := New("test", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestPeriodicFetch(t *testing.T) {
	var calls atomic.Int64
	r := New("test", 20*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, func() bool { return calls.Load() >= 3 })
}

// Stopping before the first interval elapses leaves only the immediate
// fetch; waiting 3x the interval afterwards must not raise the count.
func TestStopIsDeterministic(t *testing.T) {
	var calls atomic.Int64
	interval := 50 * time.Millisecond
	r := New("test", interval, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	r.Start(context.Background())
	waitFor(t, func() bool { return calls.Load() == 1 })
	r.Stop()

	before := calls.Load()
	time.Sleep(3 * interval)
	if after := calls.Load(); after != before {
		t.Errorf("fetch count rose from %d to %d after Stop", before, after)
	}
}

func TestGuardSuppressesFetch(t *testing.T) {
	var calls atomic.Int64
	var allowed atomic.Bool
	r := New("test", 20*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, func() bool { return allowed.Load() })

	r.Start(context.Background())
	defer r.Stop()

	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("guard=false but fetch ran %d times", calls.Load())
	}

	allowed.Store(true)
	waitFor(t, func() bool { return calls.Load() >= 1 })
}

// A fetch slower than the interval makes subsequent ticks skip instead of
// piling up concurrent fetches.
func TestSingleFlight(t *testing.T) {
	var inFlight atomic.Int64
	var maxInFlight atomic.Int64
	release := make(chan struct{})

	allowed := atomic.Bool{}
	allowed.Store(true)

	r := New("test", 10*time.Millisecond, func(ctx context.Context) error {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		<-release
		inFlight.Add(-1)
		return nil
	}, func() bool { return allowed.Load() })

	r.Start(context.Background())

	// Let several intervals elapse while the first fetch hangs, then drop
	// the guard before releasing it so no extra tick sneaks in. Stop waits
	// for the released fetch to finish.
	time.Sleep(80 * time.Millisecond)
	allowed.Store(false)
	close(release)
	r.Stop()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent fetches = %d, want 1", got)
	}
	ticks, skips := r.Counts()
	if ticks != 1 {
		t.Errorf("ticks = %d, want 1 (only the immediate fetch ran)", ticks)
	}
	if skips == 0 {
		t.Error("expected skipped ticks while the fetch hung")
	}
}

// Stop must block until an in-flight fetch returns, so after Stop nothing
// touches the fetch function anymore.
func TestStopWaitsForInflightFetch(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool

	r := New("test", time.Hour, func(ctx context.Context) error {
		<-release
		finished.Store(true)
		return nil
	}, nil)

	r.Start(context.Background())
	waitFor(t, func() bool { ticks, _ := r.Counts(); return ticks == 1 })

	stopDone := make(chan struct{})
	go func() {
		r.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.Fatal("Stop returned while a fetch was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the fetch was released")
	}
	if !finished.Load() {
		t.Error("fetch should have run to completion before Stop returned")
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	r := New("test", 20*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	r.Start(ctx)
	waitFor(t, func() bool { return calls.Load() >= 1 })
	cancel()

	time.Sleep(30 * time.Millisecond)
	before := calls.Load()
	time.Sleep(60 * time.Millisecond)
	if after := calls.Load(); after != before {
		t.Errorf("fetch count rose from %d to %d after context cancel", before, after)
	}
}

func TestFetchErrorKeepsPolling(t *testing.T) {
	var calls atomic.Int64
	r := New("test", 15*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	}, nil)

	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, func() bool { return calls.Load() >= 3 })
}

func TestStartTwiceIsNoOp(t *testing.T) {
	var calls atomic.Int64
	r := New("test", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	ctx := context.Background()
	r.Start(ctx)
	r.Start(ctx)
	defer r.Stop()

	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("immediate fetch ran %d times, want 1", got)
	}
}

func TestStopTwiceIsNoOp(t *testing.T) {
	r := New("test", time.Hour, func(ctx context.Context) error { return nil }, nil)
	r.Start(context.Background())
	r.Stop()
	r.Stop()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
