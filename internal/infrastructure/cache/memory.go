package cache

import (
	"sync"
	"time"
)

const sweepInterval = 10 * time.Minute

// MemoryStore is the local layer of the session cache. It always fronts
// Redis reads for hot playback sessions and becomes the sole store when
// Redis is not configured. Expired entries are dropped lazily on read and
// swept in the background.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store and starts its sweeper
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{entries: make(map[string]memoryEntry)}
	go ms.sweep()
	return ms
}

// Set stores a value under key for the given TTL, replacing any prior entry
func (ms *MemoryStore) Set(key, value string, ttl time.Duration) {
	ms.mu.Lock()
	ms.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	ms.mu.Unlock()
}

// Get returns the live value for key. An expired entry is removed and
// reported as absent.
func (ms *MemoryStore) Get(key string) (string, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, ok := ms.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(ms.entries, key)
		return "", false
	}
	return e.value, true
}

// Delete removes a key
func (ms *MemoryStore) Delete(key string) {
	ms.mu.Lock()
	delete(ms.entries, key)
	ms.mu.Unlock()
}

func (ms *MemoryStore) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		ms.mu.Lock()
		for key, e := range ms.entries {
			if now.After(e.expiresAt) {
				delete(ms.entries, key)
			}
		}
		ms.mu.Unlock()
	}
}
