package auth

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// ErrNotAuthenticated means no usable access token is stored for the user.
var ErrNotAuthenticated = errors.New("not authenticated with YouTube")

// OAuthError is a failed authorization callback: the provider reported an
// error, or the state check did not pass.
type OAuthError struct {
	Code        string
	Description string
	Err         error
}

func (e *OAuthError) Error() string {
	msg := "oauth: " + e.Code
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OAuthError) Unwrap() error { return e.Err }

// TokenExchangeError is a failed code-for-token exchange. Status is zero
// when the token endpoint could not be reached.
type TokenExchangeError struct {
	Status int
	Body   string
	Err    error
}

func (e *TokenExchangeError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

func exchangeError(err error) *TokenExchangeError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &TokenExchangeError{Status: re.Response.StatusCode, Body: string(re.Body), Err: err}
	}
	return &TokenExchangeError{Err: err}
}
