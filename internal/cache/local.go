package cache

import (
	"sync"
	"time"
)

// localTier is the process-local cache tier: a TTL-indexed map with lazy
// expiry on read. Entries are never swept proactively; the map is bounded by
// process lifetime and the population job's working set.
type localTier struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	ttl     time.Duration
}

type localEntry struct {
	value     interface{}
	expiresAt time.Time
}

func newLocalTier(ttl time.Duration) *localTier {
	return &localTier{
		entries: make(map[string]localEntry),
		ttl:     ttl,
	}
}

func (l *localTier) get(key string) (interface{}, bool) {
	l.mu.RLock()
	entry, ok := l.entries[key]
	l.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		// Expired; drop it so the map does not accumulate stale entries
		l.mu.Lock()
		delete(l.entries, key)
		l.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (l *localTier) set(key string, value interface{}) {
	l.mu.Lock()
	l.entries[key] = localEntry{value: value, expiresAt: time.Now().Add(l.ttl)}
	l.mu.Unlock()
}

func (l *localTier) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
