package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jun/coursecast/internal/model"
	"github.com/jun/coursecast/internal/session"
	"github.com/jun/coursecast/internal/token"
	"golang.org/x/oauth2"
)

type fakeTokenEndpoint struct {
	status int
	body   string
	form   url.Values
	calls  int
}

func (f *fakeTokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls++
	r.ParseForm()
	f.form = r.PostForm
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	fmt.Fprint(w, f.body)
}

func testService(t *testing.T, endpoint *fakeTokenEndpoint) (*Service, *token.MemoryBackend) {
	t.Helper()
	srv := httptest.NewServer(endpoint)
	t.Cleanup(srv.Close)

	backend := token.NewMemoryBackend()
	cfg := &oauth2.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:3000/youtube/callback",
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return NewService(cfg, session.NewMemoryNonceStore(), token.NewStore(backend)), backend
}

func callbackURL(params map[string]string) *url.URL {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return &url.URL{Scheme: "http", Host: "localhost:3000", Path: "/youtube/callback", RawQuery: q.Encode()}
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("Invalid auth URL: %v", err)
	}
	return u.Query().Get("state")
}

func TestService_BeginAuthorization(t *testing.T) {
	s, _ := testService(t, &fakeTokenEndpoint{status: 200})

	authURL, err := s.BeginAuthorization(context.Background(), "user1")
	if err != nil {
		t.Fatalf("BeginAuthorization failed: %v", err)
	}

	u, _ := url.Parse(authURL)
	q := u.Query()
	checks := map[string]string{
		"client_id":     "test-client-id",
		"redirect_uri":  "http://localhost:3000/youtube/callback",
		"response_type": "code",
		"access_type":   "offline",
		"prompt":        "consent",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("Expected %s=%q, got %q", k, want, got)
		}
	}
	if q.Get("state") == "" {
		t.Error("Expected a state parameter")
	}
	if !strings.Contains(q.Get("scope"), "youtube.upload") {
		t.Errorf("Expected upload scope, got %q", q.Get("scope"))
	}
}

func TestService_CompleteAuthorization_Success(t *testing.T) {
	endpoint := &fakeTokenEndpoint{status: 200, body: `{"access_token":"ya29.new","token_type":"Bearer","expires_in":3599}`}
	s, backend := testService(t, endpoint)
	ctx := context.Background()

	authURL, _ := s.BeginAuthorization(ctx, "user1")
	state := stateFrom(t, authURL)

	before := time.Now()
	tok, err := s.CompleteAuthorization(ctx, "user1", callbackURL(map[string]string{"code": "auth-code", "state": state}))
	if err != nil {
		t.Fatalf("CompleteAuthorization failed: %v", err)
	}
	if tok.Value != "ya29.new" {
		t.Errorf("Expected access token 'ya29.new', got '%s'", tok.Value)
	}
	if tok.ExpiresAt.Before(before.Add(3500*time.Second)) || tok.ExpiresAt.After(time.Now().Add(3600*time.Second)) {
		t.Errorf("Unexpected expiry %v", tok.ExpiresAt)
	}

	wantForm := map[string]string{
		"code":          "auth-code",
		"grant_type":    "authorization_code",
		"client_id":     "test-client-id",
		"client_secret": "test-client-secret",
		"redirect_uri":  "http://localhost:3000/youtube/callback",
	}
	for k, want := range wantForm {
		if got := endpoint.form.Get(k); got != want {
			t.Errorf("Expected form %s=%q, got %q", k, want, got)
		}
	}

	if backend.Len() != 1 {
		t.Error("Expected token to be stored")
	}
	stored, err := s.Token(ctx, "user1")
	if err != nil || stored.Value != "ya29.new" {
		t.Errorf("Expected stored token, got %+v, %v", stored, err)
	}
}

func TestService_CompleteAuthorization_DefaultLifetime(t *testing.T) {
	endpoint := &fakeTokenEndpoint{status: 200, body: `{"access_token":"ya29.noexp","token_type":"Bearer"}`}
	s, _ := testService(t, endpoint)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	authURL, _ := s.BeginAuthorization(ctx, "user1")
	tok, err := s.CompleteAuthorization(ctx, "user1", callbackURL(map[string]string{"code": "c", "state": stateFrom(t, authURL)}))
	if err != nil {
		t.Fatalf("CompleteAuthorization failed: %v", err)
	}
	if !tok.ExpiresAt.Equal(now.Add(DefaultTokenLifetime)) {
		t.Errorf("Expected default expiry %v, got %v", now.Add(DefaultTokenLifetime), tok.ExpiresAt)
	}
}

func TestService_CompleteAuthorization_StateMismatch(t *testing.T) {
	tests := []struct {
		name  string
		state string
	}{
		{"different state", "forged-state"},
		{"empty state", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := &fakeTokenEndpoint{status: 200, body: `{"access_token":"x","expires_in":3600}`}
			s, backend := testService(t, endpoint)
			ctx := context.Background()
			s.BeginAuthorization(ctx, "user1")

			_, err := s.CompleteAuthorization(ctx, "user1", callbackURL(map[string]string{"code": "c", "state": tt.state}))
			var oauthErr *OAuthError
			if !errors.As(err, &oauthErr) {
				t.Fatalf("Expected OAuthError, got %v", err)
			}
			if !errors.Is(err, session.ErrNonceMismatch) {
				t.Errorf("Expected wrapped ErrNonceMismatch, got %v", err)
			}
			if endpoint.calls != 0 {
				t.Error("Token endpoint must not be called on state mismatch")
			}
			if backend.Len() != 0 {
				t.Error("No token should be stored")
			}
		})
	}
}

func TestService_CompleteAuthorization_NoPendingState(t *testing.T) {
	s, _ := testService(t, &fakeTokenEndpoint{status: 200})

	_, err := s.CompleteAuthorization(context.Background(), "user1", callbackURL(map[string]string{"code": "c", "state": "s"}))
	var oauthErr *OAuthError
	if !errors.As(err, &oauthErr) {
		t.Fatalf("Expected OAuthError, got %v", err)
	}
}

func TestService_CompleteAuthorization_ProviderError(t *testing.T) {
	endpoint := &fakeTokenEndpoint{status: 200}
	s, backend := testService(t, endpoint)
	ctx := context.Background()

	authURL, _ := s.BeginAuthorization(ctx, "user1")
	state := stateFrom(t, authURL)

	_, err := s.CompleteAuthorization(ctx, "user1", callbackURL(map[string]string{
		"error":             "access_denied",
		"error_description": "user declined",
		"state":             state,
	}))
	var oauthErr *OAuthError
	if !errors.As(err, &oauthErr) {
		t.Fatalf("Expected OAuthError, got %v", err)
	}
	if oauthErr.Code != "access_denied" {
		t.Errorf("Expected code 'access_denied', got '%s'", oauthErr.Code)
	}
	if backend.Len() != 0 || endpoint.calls != 0 {
		t.Error("Provider error must not exchange or store anything")
	}

	// The state was consumed by the failed attempt.
	_, err = s.CompleteAuthorization(ctx, "user1", callbackURL(map[string]string{"code": "c", "state": state}))
	if !errors.As(err, &oauthErr) {
		t.Errorf("Expected OAuthError on state reuse, got %v", err)
	}
}

func TestService_CompleteAuthorization_MissingCode(t *testing.T) {
	s, _ := testService(t, &fakeTokenEndpoint{status: 200})
	ctx := context.Background()

	authURL, _ := s.BeginAuthorization(ctx, "user1")
	_, err := s.CompleteAuthorization(ctx, "user1", callbackURL(map[string]string{"state": stateFrom(t, authURL)}))
	var oauthErr *OAuthError
	if !errors.As(err, &oauthErr) {
		t.Fatalf("Expected OAuthError, got %v", err)
	}
}

func TestService_CompleteAuthorization_ExchangeFailure(t *testing.T) {
	endpoint := &fakeTokenEndpoint{status: 400, body: `{"error":"invalid_grant","error_description":"Bad Request"}`}
	s, backend := testService(t, endpoint)
	ctx := context.Background()

	authURL, _ := s.BeginAuthorization(ctx, "user1")
	_, err := s.CompleteAuthorization(ctx, "user1", callbackURL(map[string]string{"code": "used-code", "state": stateFrom(t, authURL)}))

	var exErr *TokenExchangeError
	if !errors.As(err, &exErr) {
		t.Fatalf("Expected TokenExchangeError, got %v", err)
	}
	if exErr.Status != 400 {
		t.Errorf("Expected status 400, got %d", exErr.Status)
	}
	if !strings.Contains(exErr.Body, "invalid_grant") {
		t.Errorf("Expected body to contain 'invalid_grant', got '%s'", exErr.Body)
	}
	if backend.Len() != 0 {
		t.Error("No token should be stored after failed exchange")
	}
}

func TestService_FailedAuthorizationKeepsExistingToken(t *testing.T) {
	endpoint := &fakeTokenEndpoint{status: 500, body: "boom"}
	s, _ := testService(t, endpoint)
	ctx := context.Background()

	s.tokens.Save(ctx, "user1", model.AccessToken{Value: "existing", ExpiresAt: time.Now().Add(time.Hour)})

	authURL, _ := s.BeginAuthorization(ctx, "user1")
	if _, err := s.CompleteAuthorization(ctx, "user1", callbackURL(map[string]string{"code": "c", "state": stateFrom(t, authURL)})); err == nil {
		t.Fatal("Expected exchange failure")
	}

	tok, err := s.Token(ctx, "user1")
	if err != nil || tok.Value != "existing" {
		t.Errorf("Expected existing token to survive, got %+v, %v", tok, err)
	}
}

func TestService_TokenAndSignOut(t *testing.T) {
	s, _ := testService(t, &fakeTokenEndpoint{status: 200})
	ctx := context.Background()

	if _, err := s.Token(ctx, "user1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}

	s.tokens.Save(ctx, "user1", model.AccessToken{Value: "v", ExpiresAt: time.Now().Add(time.Hour)})
	if _, err := s.Token(ctx, "user1"); err != nil {
		t.Errorf("Expected token, got %v", err)
	}

	if err := s.SignOut(ctx, "user1"); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if _, err := s.Token(ctx, "user1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated after SignOut, got %v", err)
	}
}

func TestNewOAuthConfig(t *testing.T) {
	cfg := NewOAuthConfig("id", "secret", "http://localhost/cb")
	if cfg.Endpoint.TokenURL == "" || cfg.Endpoint.AuthURL == "" {
		t.Error("Expected Google endpoints")
	}
	if len(cfg.Scopes) != 2 {
		t.Errorf("Expected 2 scopes, got %v", cfg.Scopes)
	}
}
