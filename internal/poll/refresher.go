// Package poll runs time-based background refreshes of small derived values,
// such as the unread message counter (30s) and the leaderboard (5min).
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher periodically invokes a fetch function while a guard condition
// holds. Ticks overlap-proof: a tick is skipped when the previous fetch has
// not returned yet (single flight), so a slow response can never race a
// fresh one. Stop is deterministic: it waits out any in-flight fetch, and
// after it returns the fetch function is never invoked again.
type Refresher struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) error
	guard    func() bool

	mu       sync.Mutex
	running  bool
	inflight bool
	done     chan struct{}
	stopped  sync.WaitGroup

	skips   uint64
	ticks   uint64
	metrics MetricsRecorder
}

// MetricsRecorder is an optional hook for instrumenting poll behavior.
type MetricsRecorder interface {
	IncPollTick(name string)
	IncPollSkip(name string)
	IncPollError(name string)
}

// New creates a Refresher. guard may be nil, meaning "always fetch". The
// name appears in logs and metrics.
func New(name string, interval time.Duration, fetch func(ctx context.Context) error, guard func() bool) *Refresher {
	if guard == nil {
		guard = func() bool { return true }
	}
	return &Refresher{
		name:     name,
		interval: interval,
		fetch:    fetch,
		guard:    guard,
	}
}

// SetMetrics sets the optional metrics recorder. Call before Start.
func (r *Refresher) SetMetrics(m MetricsRecorder) {
	r.metrics = m
}

// Start launches the polling goroutine: one immediate fetch, then one per
// interval while the guard holds. Calling Start on a running Refresher is a
// no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.done = make(chan struct{})
	r.mu.Unlock()

	r.stopped.Add(1)
	go r.loop(ctx)
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.stopped.Done()

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			return
		case <-r.done:
			return
		}
	}
}

// tick starts one guarded fetch unless the previous one is still running.
// The fetch runs in its own goroutine so a slow backend never stalls the
// ticker; the inflight flag is what keeps fetches from overlapping.
func (r *Refresher) tick(ctx context.Context) {
	if !r.guard() {
		return
	}

	r.mu.Lock()
	if r.inflight {
		r.skips++
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.IncPollSkip(r.name)
		}
		slog.Debug("poll tick skipped, previous fetch still running", "poller", r.name)
		return
	}
	r.inflight = true
	r.ticks++
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.IncPollTick(r.name)
	}

	r.stopped.Add(1)
	go func() {
		defer r.stopped.Done()

		// Stop may have landed between the tick and this goroutine getting
		// scheduled; a stopped refresher must not fetch.
		r.mu.Lock()
		if !r.running {
			r.inflight = false
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		err := r.fetch(ctx)

		r.mu.Lock()
		r.inflight = false
		r.mu.Unlock()

		if err != nil && ctx.Err() == nil {
			if r.metrics != nil {
				r.metrics.IncPollError(r.name)
			}
			slog.Warn("poll fetch failed", "poller", r.name, "error", err)
		}
	}()
}

// Stop halts the refresher and waits for the loop and any in-flight fetch
// to finish. After Stop returns the fetch function will not be invoked
// again. Stopping a stopped Refresher is a no-op.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.done)
	r.mu.Unlock()

	r.stopped.Wait()
}

// Counts reports how many ticks fetched and how many were skipped by the
// single-flight guard.
func (r *Refresher) Counts() (ticks, skips uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks, r.skips
}
