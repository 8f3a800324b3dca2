package youtube

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrNoChannel means the authorized account has no YouTube channel.
var ErrNoChannel = errors.New("account has no YouTube channel")

// SessionInitError is a failed request for a resumable upload session.
// Status is zero when no response was received.
type SessionInitError struct {
	Status int
	Body   string
	Err    error
}

func (e *SessionInitError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("create upload session: %v", e.Err)
	}
	return fmt.Sprintf("create upload session: status %d: %s", e.Status, e.Body)
}

func (e *SessionInitError) Unwrap() error { return e.Err }

// TransportError is a failed or unreadable video transfer.
// Status is zero when no response was received.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("upload video: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("upload video: status %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("upload video: status %d: %s", e.Status, e.Body)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a successful response that breaks the API contract.
type ProtocolError struct {
	Op  string
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %s", e.Op, e.Msg)
}

// IsUnauthorized reports whether err is YouTube rejecting the access token.
func IsUnauthorized(err error) bool {
	var sErr *SessionInitError
	if errors.As(err, &sErr) && sErr.Status == http.StatusUnauthorized {
		return true
	}
	var tErr *TransportError
	if errors.As(err, &tErr) && tErr.Status == http.StatusUnauthorized {
		return true
	}
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusUnauthorized
}
