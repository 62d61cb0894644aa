package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[int64]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, chatID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[chatID]
	if !ok {
		return Idle(), nil
	}
	if m.ttl > 0 && m.now().After(entry.expiresAt) {
		delete(m.entries, chatID)
		return Idle(), nil
	}
	return entry.state, nil
}

func (m *MemoryStore) Set(ctx context.Context, chatID int64, state State) error {
	if state.IsIdle() {
		return m.Clear(ctx, chatID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[chatID] = memoryEntry{state: state, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, chatID)
	return nil
}

func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for chatID, entry := range m.entries {
		if m.ttl > 0 && now.After(entry.expiresAt) {
			delete(m.entries, chatID)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
