package repo

import (
	"strings"
	"sync"

	"github.com/cuemby/podcore/pkg/metrics"
)

// NameLocker hands out per-resource shared/exclusive locks keyed by the
// mutex-normal form of a slot URI, so a container and its non-container
// mutex peer contend on the same lock. Readers take a shared lock, mutators
// an exclusive one; a Create additionally locks the parent container so
// containment-listing reads never observe a half-created child. Entries are
// created on first use and dropped once the last holder releases, the same
// grow-then-clean keyed-map shape as the ingress middleware's per-client
// rate limiters.
type NameLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu sync.RWMutex
	// holders counts lockers that have acquired or are waiting, so the
	// entry stays in the map until the last one releases.
	holders int
}

// NewNameLocker creates an empty locker.
func NewNameLocker() *NameLocker {
	return &NameLocker{entries: make(map[string]*lockEntry)}
}

// mutexNormalKey maps both members of a mutex pair to one lock key.
func mutexNormalKey(uri string) string {
	return strings.TrimSuffix(uri, "/")
}

func (l *NameLocker) entry(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.holders++
	return e
}

func (l *NameLocker) release(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.holders--
	if e.holders == 0 {
		delete(l.entries, key)
	}
}

// Lock acquires the exclusive lock for uri's slot and returns the release
// function. Release exactly once, on every exit path.
func (l *NameLocker) Lock(uri string) func() {
	key := mutexNormalKey(uri)
	e := l.entry(key)
	timer := metrics.NewTimer()
	e.mu.Lock()
	timer.ObserveDurationVec(metrics.LockWaitDuration, "exclusive")
	return func() {
		e.mu.Unlock()
		l.release(key, e)
	}
}

// RLock acquires the shared lock for uri's slot and returns the release
// function.
func (l *NameLocker) RLock(uri string) func() {
	key := mutexNormalKey(uri)
	e := l.entry(key)
	timer := metrics.NewTimer()
	e.mu.RLock()
	timer.ObserveDurationVec(metrics.LockWaitDuration, "shared")
	return func() {
		e.mu.RUnlock()
		l.release(key, e)
	}
}
