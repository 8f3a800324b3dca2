// Package token persists YouTube access tokens per admin user.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/jun/coursecast/internal/model"
	"github.com/rs/zerolog/log"
)

// Store persists one access token per user.
type Store interface {
	// Load returns the stored token, or nil if there is none or it has expired.
	Load(ctx context.Context, userID string) (*model.AccessToken, error)

	// Save stores tok, replacing whatever was stored before.
	Save(ctx context.Context, userID string, tok model.AccessToken) error

	// Clear removes the stored token. Clearing an absent token is not an error.
	Clear(ctx context.Context, userID string) error
}

// Backend is raw token storage without expiry handling.
type Backend interface {
	Get(ctx context.Context, userID string) (*model.AccessToken, error)
	Put(ctx context.Context, userID string, tok model.AccessToken) error
	Delete(ctx context.Context, userID string) error
}

// ExpiringStore implements Store on a Backend and drops tokens once they expire.
type ExpiringStore struct {
	backend Backend
	now     func() time.Time
}

// NewStore wraps backend.
func NewStore(backend Backend) *ExpiringStore {
	return &ExpiringStore{backend: backend, now: time.Now}
}

// WithClock replaces the clock used for expiry checks.
func (s *ExpiringStore) WithClock(now func() time.Time) *ExpiringStore {
	s.now = now
	return s
}

func (s *ExpiringStore) Load(ctx context.Context, userID string) (*model.AccessToken, error) {
	tok, err := s.backend.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if tok.Expired(s.now()) {
		if err := s.backend.Delete(ctx, userID); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to delete expired token")
		}
		return nil, nil
	}
	return tok, nil
}

func (s *ExpiringStore) Save(ctx context.Context, userID string, tok model.AccessToken) error {
	if err := s.backend.Put(ctx, userID, tok); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *ExpiringStore) Clear(ctx context.Context, userID string) error {
	if err := s.backend.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
