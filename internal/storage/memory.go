package storage

import (
	"sync"
	"time"
)

// memoryStore keeps keys in process memory. Used when no database path is configured.
type memoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	opts    Options
	swept   time.Time
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{expires: make(map[string]time.Time), opts: opts, swept: opts.Now()}
}

func (m *memoryStore) Seen(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.opts.Now()
	m.sweepLocked(now)
	exp, ok := m.expires[key]
	if !ok {
		return false, nil
	}
	if !exp.After(now) {
		delete(m.expires, key)
		return false, nil
	}
	return true, nil
}

func (m *memoryStore) Mark(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.opts.Now()
	m.sweepLocked(now)
	m.expires[key] = now.Add(m.opts.TTL)
	return nil
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) sweepLocked(now time.Time) {
	if now.Sub(m.swept) < m.opts.CleanupInterval {
		return
	}
	for k, exp := range m.expires {
		if !exp.After(now) {
			delete(m.expires, k)
		}
	}
	m.swept = now
}
