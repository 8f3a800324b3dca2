package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jun/coursecast/internal/model"
)

// MemoryNonceStore is an in-process NonceStore for DEV_MODE, the CLI and tests.
type MemoryNonceStore struct {
	nonces      map[string]model.OAuthNonce
	mu          sync.Mutex
	ttlDuration time.Duration
	now         func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		nonces:      make(map[string]model.OAuthNonce),
		ttlDuration: DefaultTTL,
		now:         time.Now,
	}
}

func (m *MemoryNonceStore) Issue(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := model.OAuthNonce{
		UserID:    userID,
		State:     uuid.NewString(),
		ExpiresAt: m.now().Add(m.ttlDuration).Unix(),
	}
	m.nonces[userID] = nonce
	return nonce.State, nil
}

func (m *MemoryNonceStore) Consume(_ context.Context, userID, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce, ok := m.nonces[userID]
	if !ok {
		return ErrNonceNotFound
	}
	delete(m.nonces, userID)
	return verify(nonce.State, state, nonce.ExpiresAt, m.now().Unix())
}
