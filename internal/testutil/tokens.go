package testutil

import (
	"context"
	"sync"
)

// MemoryTokens is an in-memory session token store.
//
// Set FailWith to make every write fail.
type MemoryTokens struct {
	mu       sync.Mutex
	token    string
	writes   int
	FailWith error
}

// Token returns the stored token.
func (m *MemoryTokens) Token(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// SaveToken stores token.
func (m *MemoryTokens) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.writes++
	m.token = token
	return nil
}

// ClearToken removes the token.
func (m *MemoryTokens) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.writes++
	m.token = ""
	return nil
}

// Writes returns the number of successful writes.
func (m *MemoryTokens) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
