package cache

import (
	"context"
	"sync"
	"time"

	"github.com/querypilot/querypilot/internal/observability"
)

type entry struct {
	data      string
	createdAt time.Time
}

// Memory is the in-process cache backend. One mutex serializes all access,
// including the entry deletion that happens when an expired entry is read.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemory builds an in-memory cache. ttl <= 0 disables expiry.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the payload for the derived key. An entry is live only while
// now - createdAt < ttl, strictly; an entry exactly ttl old is expired and is
// deleted as a side effect of this read.
func (m *Memory) Get(_ context.Context, query, systemPrompt, model, contextStr string) (string, bool) {
	key := Key(query, systemPrompt, model, contextStr)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		observability.IncrementCacheEvent(observability.CacheMiss)
		return "", false
	}
	if m.expired(e) {
		delete(m.entries, key)
		observability.IncrementCacheEvent(observability.CacheExpired)
		return "", false
	}
	observability.IncrementCacheEvent(observability.CacheHit)
	return e.data, true
}

// Set stores the payload under the derived key, resetting its age.
func (m *Memory) Set(_ context.Context, query, response, systemPrompt, model, contextStr string) {
	key := Key(query, systemPrompt, model, contextStr)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{data: response, createdAt: m.now()}
}

// Clear drops every entry.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}

// ClearExpired sweeps entries past their TTL and returns how many were
// removed.
func (m *Memory) ClearExpired(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) expired(e entry) bool {
	if m.ttl <= 0 {
		return false
	}
	return m.now().Sub(e.createdAt) >= m.ttl
}
