package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jun/coursecast/internal/model"
	"github.com/jun/coursecast/internal/session"
	"github.com/jun/coursecast/internal/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// DefaultTokenLifetime applies when the token endpoint omits expires_in.
const DefaultTokenLifetime = time.Hour

// Scopes requested from the account owner.
var Scopes = []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope}

// NewOAuthConfig returns the Google OAuth2 config for YouTube uploads.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// Service runs the authorization code flow and owns the stored access tokens.
type Service struct {
	oauthConfig *oauth2.Config
	nonces      session.NonceStore
	tokens      token.Store
	now         func() time.Time
}

// NewService creates a new Service.
// The oauthConfig should be constructed by the caller (e.g., with NewOAuthConfig).
func NewService(oauthConfig *oauth2.Config, nonces session.NonceStore, tokens token.Store) *Service {
	return &Service{
		oauthConfig: oauthConfig,
		nonces:      nonces,
		tokens:      tokens,
		now:         time.Now,
	}
}

// Config returns the OAuth2 config.
func (s *Service) Config() *oauth2.Config {
	return s.oauthConfig
}

// BeginAuthorization issues a fresh state for userID and returns the URL
// the browser must be redirected to.
func (s *Service) BeginAuthorization(ctx context.Context, userID string) (string, error) {
	state, err := s.nonces.Issue(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("begin authorization: %w", err)
	}
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// CompleteAuthorization handles the redirect back from the provider.
// The pending state is consumed before anything else. Nothing is stored
// unless the exchange succeeds.
func (s *Service) CompleteAuthorization(ctx context.Context, userID string, callback *url.URL) (*model.AccessToken, error) {
	q := callback.Query()
	nonceErr := s.nonces.Consume(ctx, userID, q.Get("state"))

	if code := q.Get("error"); code != "" {
		return nil, &OAuthError{Code: code, Description: q.Get("error_description")}
	}
	if nonceErr != nil {
		if errors.Is(nonceErr, session.ErrNonceNotFound) ||
			errors.Is(nonceErr, session.ErrNonceExpired) ||
			errors.Is(nonceErr, session.ErrNonceMismatch) {
			return nil, &OAuthError{Code: "invalid_state", Err: nonceErr}
		}
		return nil, fmt.Errorf("complete authorization: %w", nonceErr)
	}

	code := q.Get("code")
	if code == "" {
		return nil, &OAuthError{Code: "invalid_request", Description: "missing authorization code"}
	}

	tok, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError(err)
	}

	access := model.AccessToken{Value: tok.AccessToken, ExpiresAt: tok.Expiry}
	if tok.Expiry.IsZero() {
		access.ExpiresAt = s.now().Add(DefaultTokenLifetime)
	}

	if err := s.tokens.Save(ctx, userID, access); err != nil {
		return nil, fmt.Errorf("complete authorization: %w", err)
	}
	log.Info().Str("user_id", userID).Time("expires_at", access.ExpiresAt).Msg("YouTube account connected")
	return &access, nil
}

// Token returns the stored token for userID, or ErrNotAuthenticated.
// A storage failure is logged and reported as ErrNotAuthenticated.
func (s *Service) Token(ctx context.Context, userID string) (*model.AccessToken, error) {
	tok, err := s.tokens.Load(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load YouTube token")
		return nil, ErrNotAuthenticated
	}
	if tok == nil {
		return nil, ErrNotAuthenticated
	}
	return tok, nil
}

// SignOut forgets the stored token. The grant itself stays valid at Google
// until the token expires.
func (s *Service) SignOut(ctx context.Context, userID string) error {
	return s.tokens.Clear(ctx, userID)
}
