package service

import (
	"sort"
	"sync"
)

// Locker serializes rating mutations. Player mutexes are taken in sorted id
// order, so two resolutions over the same unordered pair (or sharing one
// participant) cannot interleave their read-modify-write. Maintenance takes
// the whole gate so its bulk reset never overlaps an in-flight duel.
type Locker struct {
	gate    sync.RWMutex
	mu      sync.Mutex
	players map[string]*sync.Mutex
}

func NewLocker() *Locker {
	return &Locker{players: make(map[string]*sync.Mutex)}
}

func (l *Locker) playerMutex(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.players[id]
	if !ok {
		m = &sync.Mutex{}
		l.players[id] = m
	}
	return m
}

// LockPlayers acquires the shared gate plus each listed player's mutex and
// returns the release func. Duplicate ids are collapsed.
func (l *Locker) LockPlayers(ids ...string) func() {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)

	l.gate.RLock()
	locked := make([]*sync.Mutex, 0, len(unique))
	for _, id := range unique {
		m := l.playerMutex(id)
		m.Lock()
		locked = append(locked, m)
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
		l.gate.RUnlock()
	}
}

// LockAll blocks every per-player operation until released.
func (l *Locker) LockAll() func() {
	l.gate.Lock()
	return l.gate.Unlock
}
