package retryguard

import (
	"sync"
	"time"
)

// Record tracks consecutive failures for one key.
type Record struct {
	Attempts    int
	LastAttempt time.Time
}

// Store holds retry records by key.
type Store interface {
	Get(key string) (Record, bool)
	Put(key string, rec Record)
	Delete(key string)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// Compile-time check to ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Get(key string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok
}

func (m *MemoryStore) Put(key string, rec Record) {
	m.mu.Lock()
	m.records[key] = rec
	m.mu.Unlock()
}

func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
}

// Len returns the number of tracked keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
