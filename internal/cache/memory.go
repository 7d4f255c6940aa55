package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    any
	expireAt time.Time // zero = no expiry
}

// Memory is an in-process Store and Locker. Expired entries are dropped
// lazily on read.
type Memory struct {
	mu    sync.Mutex
	items map[string]entry
	locks map[string]time.Time
	now   func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]entry),
		locks: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Get returns the value when present and not expired.
func (m *Memory) Get(_ context.Context, key string) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expireAt.IsZero() && m.now().After(e.expireAt) {
		delete(m.items, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores the value; ttl <= 0 means no expiry. Last write wins.
func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}
	m.items[key] = e
	return nil
}

// Delete removes the key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// TryLock acquires the named lock when free or expired.
func (m *Memory) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if until, held := m.locks[key]; held && m.now().Before(until) {
		return false, nil
	}
	m.locks[key] = m.now().Add(ttl)
	return true, nil
}

// Unlock releases the named lock.
func (m *Memory) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}
