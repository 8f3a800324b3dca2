package token

import (
	"context"
	"sync"

	"github.com/jun/coursecast/internal/model"
)

// MemoryBackend keeps tokens in a map. Used by tests and DEV_MODE.
type MemoryBackend struct {
	tokens map[string]model.AccessToken
	mu     sync.RWMutex
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tokens: make(map[string]model.AccessToken)}
}

func (m *MemoryBackend) Get(_ context.Context, userID string) (*model.AccessToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[userID]
	if !ok {
		return nil, nil
	}
	return &tok, nil
}

func (m *MemoryBackend) Put(_ context.Context, userID string, tok model.AccessToken) error {
	m.mu.Lock()
	m.tokens[userID] = tok
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.tokens, userID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored tokens.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
