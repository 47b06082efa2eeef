package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the token in a single in-process slot.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// Compile-time check to ensure MemoryStore implements TokenStore
var _ TokenStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read returns the token held in memory.
func (m *MemoryStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

// Write overwrites the token held in memory.
func (m *MemoryStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Clear drops the token held in memory.
func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
