package runner

import (
	"context"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningGuard

// ─────────────────────────────────────────────────────────────
// runningGuard — prevents overlapping sync runs
// ─────────────────────────────────────────────────────────────

// runningGuard ensures only one sync runs at a time. Triggers that
// fire while a run is in flight (cron tick, file change burst) are
// dropped, not queued.
type runningGuard struct {
	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// TryLock attempts to mark the sync as running. Returns false if a run
// is already in flight.
func (g *runningGuard) TryLock() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return false
	}
	g.running = true
	g.wg.Add(1)
	return true
}

// Unlock marks the sync as finished. Must be called after TryLock
// returns true.
func (g *runningGuard) Unlock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
	g.wg.Done()
}

// Wait blocks until the in-flight run (if any) completes or ctx is
// cancelled.
func (g *runningGuard) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
