package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func channelServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Query().Get("mine") != "true" {
			t.Errorf("Expected mine=true, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &auth
}

func TestClient_Channel(t *testing.T) {
	srv, auth := channelServer(t, http.StatusOK, `{"items":[{"id":"UC123","snippet":{"title":"Course Lectures"}}]}`)
	c := NewClient(WithHTTPClient(srv.Client()), WithAPIBaseURL(srv.URL+"/"))

	ch, err := c.Channel(context.Background(), testToken)
	if err != nil {
		t.Fatalf("Channel failed: %v", err)
	}
	if ch.ID != "UC123" || ch.Title != "Course Lectures" {
		t.Errorf("Unexpected channel: %+v", ch)
	}
	if *auth != "Bearer ya29.test" {
		t.Errorf("Expected bearer token, got %q", *auth)
	}
}

func TestClient_Channel_None(t *testing.T) {
	srv, _ := channelServer(t, http.StatusOK, `{"items":[]}`)
	c := NewClient(WithHTTPClient(srv.Client()), WithAPIBaseURL(srv.URL+"/"))

	if _, err := c.Channel(context.Background(), testToken); !errors.Is(err, ErrNoChannel) {
		t.Errorf("Expected ErrNoChannel, got %v", err)
	}
}

func TestClient_Channel_Unauthorized(t *testing.T) {
	srv, _ := channelServer(t, http.StatusUnauthorized, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	c := NewClient(WithHTTPClient(srv.Client()), WithAPIBaseURL(srv.URL+"/"))

	_, err := c.Channel(context.Background(), testToken)
	if !IsUnauthorized(err) {
		t.Errorf("Expected unauthorized error, got %v", err)
	}
}
