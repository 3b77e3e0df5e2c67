// Package guard serializes writers per user (or globally for the draw) and
// controls when staged state becomes visible to readers.
package guard

import (
	"sort"
	"sync"
)

// Guard coordinates every store that shares account state.
//
// Writers hold User (one or more accounts) or Global (every account) for the
// whole validate-persist-publish cycle. Readers and the publish step use the
// state lock, so a composite write is observed all at once or not at all.
type Guard struct {
	world sync.RWMutex // Global takes it exclusively, User shares it

	mu    sync.Mutex
	users map[string]*sync.Mutex

	state sync.RWMutex
}

// New returns a ready Guard
func New() *Guard {
	return &Guard{users: make(map[string]*sync.Mutex)}
}

func (g *Guard) userMutex(id string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.users[id]
	if !ok {
		m = &sync.Mutex{}
		g.users[id] = m
	}
	return m
}

// User acquires the writer slot of every listed account, in a fixed order,
// and returns the release function.
func (g *Guard) User(ids ...string) (unlock func()) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)

	g.world.RLock()
	held := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		m := g.userMutex(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		g.world.RUnlock()
	}
}

// Global acquires the writer slot of every account at once
func (g *Guard) Global() (unlock func()) {
	g.world.Lock()
	return g.world.Unlock
}

// Publish runs fn with exclusive access to the shared in-memory state.
// fn must not fail; everything that can fail happens before publishing.
func (g *Guard) Publish(fn func()) {
	g.state.Lock()
	defer g.state.Unlock()
	fn()
}

// View runs fn with shared read access to the in-memory state
func (g *Guard) View(fn func()) {
	g.state.RLock()
	defer g.state.RUnlock()
	fn()
}
