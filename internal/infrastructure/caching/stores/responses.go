// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"
)

// ResponseEntry is one cached upstream GET response body
type ResponseEntry struct {
	Body     []byte
	Status   int
	CachedAt time.Time
}

// ResponseStore caches upstream GET responses by request key. Entries
// expire after the configured TTL; expired entries are pruned on every
// access; the oldest entry is evicted when the store is full.
type ResponseStore struct {
	entries    map[string]*ResponseEntry
	ttl        time.Duration
	maxEntries int
	mu         sync.Mutex
}

// NewResponseStore creates a response cache store
func NewResponseStore(ttl time.Duration, maxEntries int) *ResponseStore {
	return &ResponseStore{
		entries:    make(map[string]*ResponseEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get retrieves a fresh cached response. Expired entries are pruned
// before the lookup.
func (rs *ResponseStore) Get(key string) (*ResponseEntry, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.pruneLocked()

	entry, exists := rs.entries[key]
	if !exists {
		return nil, false
	}
	return entry, true
}

// Set stores a response, evicting the oldest entry when full
func (rs *ResponseStore) Set(key string, status int, body []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.pruneLocked()

	if _, exists := rs.entries[key]; !exists && len(rs.entries) >= rs.maxEntries {
		rs.evictOldestLocked()
	}

	rs.entries[key] = &ResponseEntry{
		Body:     body,
		Status:   status,
		CachedAt: time.Now(),
	}
}

// Invalidate removes one entry so the next request hits the network
func (rs *ResponseStore) Invalidate(key string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.entries, key)
}

// Clear drops all cached responses
func (rs *ResponseStore) Clear() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.entries = make(map[string]*ResponseEntry)
}

// Len reports the current entry count
func (rs *ResponseStore) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.entries)
}

// pruneLocked drops expired entries. Caller holds the lock.
func (rs *ResponseStore) pruneLocked() {
	now := time.Now()
	for key, entry := range rs.entries {
		if now.Sub(entry.CachedAt) > rs.ttl {
			delete(rs.entries, key)
		}
	}
}

// evictOldestLocked removes the entry with the oldest timestamp. Caller
// holds the lock.
func (rs *ResponseStore) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range rs.entries {
		if oldestKey == "" || entry.CachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CachedAt
		}
	}
	if oldestKey != "" {
		delete(rs.entries, oldestKey)
	}
}
