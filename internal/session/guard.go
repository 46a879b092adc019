// Package session serializes fix sessions per project and bounds how many
// run at once.
package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent bounds sessions across all projects.
const DefaultMaxConcurrent = 4

var ErrBusy = errors.New("session: project already has an active session")

// Guard hands out per-project locks. Entries are reference counted and
// removed once no caller holds or waits on them.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*entry
	slots *semaphore.Weighted
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewGuard(maxConcurrent int) *Guard {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Guard{locks: map[string]*entry{}, slots: semaphore.NewWeighted(int64(maxConcurrent))}
}

func (g *Guard) acquireEntry(key string) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		g.locks[key] = e
	}
	e.refs++
	return e
}

func (g *Guard) releaseEntry(key string, e *entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(g.locks, key)
	}
}

// Lock blocks until key is free and a global slot is available, or ctx ends.
// The returned func releases both and is safe to call more than once.
func (g *Guard) Lock(ctx context.Context, key string) (func(), error) {
	e := g.acquireEntry(key)
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		g.releaseEntry(key, e)
		return nil, ctx.Err()
	}
	if err := g.slots.Acquire(ctx, 1); err != nil {
		<-e.ch
		g.releaseEntry(key, e)
		return nil, err
	}
	return g.unlocker(key, e), nil
}

// TryLock is Lock without waiting on the project lock. It returns ErrBusy
// when key is held; waiting for a global slot still honors ctx.
func (g *Guard) TryLock(ctx context.Context, key string) (func(), error) {
	e := g.acquireEntry(key)
	select {
	case e.ch <- struct{}{}:
	default:
		g.releaseEntry(key, e)
		return nil, ErrBusy
	}
	if err := g.slots.Acquire(ctx, 1); err != nil {
		<-e.ch
		g.releaseEntry(key, e)
		return nil, err
	}
	return g.unlocker(key, e), nil
}

func (g *Guard) unlocker(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			g.slots.Release(1)
			<-e.ch
			g.releaseEntry(key, e)
		})
	}
}

// Active reports whether key is currently locked.
func (g *Guard) Active(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.locks[key]
	return ok && len(e.ch) > 0
}
