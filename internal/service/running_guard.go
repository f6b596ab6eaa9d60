package service

import (
	"context"
	"sync"
)

// ExportedInflightGuard is an exported alias so _test packages can test the guard.
type ExportedInflightGuard = inflightGuard

// ─────────────────────────────────────────────────────────────
// inflightGuard: one write per key at a time
// ─────────────────────────────────────────────────────────────

// inflightGuard ensures at most one save per board is in flight. A cron
// tick that finds the previous write still running is skipped, not queued.
type inflightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks key as in flight. Returns false if it already is.
func (g *inflightGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must be called after TryLock returns true.
func (g *inflightGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// InFlight reports whether key is currently held.
func (g *inflightGuard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// WaitAll blocks until every in-flight write completes or ctx is cancelled.
func (g *inflightGuard) WaitAll(ctx context.Context) {
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
