// Package session tracks pending OAuth authorizations. Each issued state
// value is bound to one user, expires after a short TTL and can be consumed once.
package session

import (
	"context"
	"errors"
	"time"
)

const DefaultTTL = 10 * time.Minute

var (
	ErrNonceNotFound = errors.New("no pending authorization")
	ErrNonceExpired  = errors.New("authorization request expired")
	ErrNonceMismatch = errors.New("state does not match pending authorization")
)

// NonceStore issues and consumes anti-CSRF state values.
type NonceStore interface {
	// Issue creates a fresh state for userID, replacing any pending one.
	Issue(ctx context.Context, userID string) (string, error)

	// Consume removes the pending state for userID and checks it against state.
	// The pending state is gone afterwards whatever the outcome.
	Consume(ctx context.Context, userID, state string) error
}

func verify(pending, state string, expiresAt, now int64) error {
	if expiresAt <= now {
		return ErrNonceExpired
	}
	if pending == "" || pending != state {
		return ErrNonceMismatch
	}
	return nil
}
