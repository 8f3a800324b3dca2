package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jun/coursecast/internal/auth"
	"github.com/jun/coursecast/internal/markdown"
	"github.com/jun/coursecast/internal/media"
	"github.com/jun/coursecast/internal/model"
	"github.com/jun/coursecast/internal/session"
	"github.com/jun/coursecast/internal/token"
	"github.com/jun/coursecast/internal/upload"
	"github.com/jun/coursecast/internal/youtube"
	"golang.org/x/oauth2"
)

const (
	testUserID      = "test-user-123"
	testFrontendURL = "https://portal.example.com"
)

func makeToken(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testJWTSecret))
	return signed
}

func makeRequest(method, path, body string) events.APIGatewayProxyRequest {
	return makeRequestAs(testUserID, method, path, body)
}

func makeRequestAs(userID, method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers: map[string]string{
			"Authorization": "Bearer " + makeToken(userID),
			"Content-Type":  "application/json",
		},
		PathParameters:        map[string]string{},
		QueryStringParameters: map[string]string{},
	}
}

type fakeChannels struct {
	channel *model.Channel
	err     error
}

func (f *fakeChannels) Channel(context.Context, model.AccessToken) (*model.Channel, error) {
	return f.channel, f.err
}

type testEnv struct {
	auth     *auth.Service
	tokens   *token.ExpiringStore
	uploads  *upload.Service
	mediaDir string

	initStatus int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{initStatus: http.StatusOK, mediaDir: t.TempDir()}

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"ya29.new","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	var yt *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		if env.initStatus == http.StatusOK {
			w.Header().Set("Location", yt.URL+"/session")
		} else {
			w.WriteHeader(env.initStatus)
			io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PUT /session", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, `{"id":"vid42"}`)
	})
	yt = httptest.NewServer(mux)
	t.Cleanup(yt.Close)

	cfg := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  testFrontendURL + "/api/youtube/callback",
		Scopes:       auth.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  tokenSrv.URL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	env.tokens = token.NewStore(token.NewMemoryBackend())
	env.auth = auth.NewService(cfg, session.NewMemoryNonceStore(), env.tokens)

	client := youtube.NewClient(youtube.WithHTTPClient(yt.Client()), youtube.WithUploadURL(yt.URL+"/upload"))
	env.uploads = upload.NewService(
		env.auth,
		client,
		media.NewLocalSource(env.mediaDir),
		upload.NewJobStore(nil, "UploadJobs"),
		nil,
		markdown.NewRenderer(),
	)
	return env
}

func (e *testEnv) signIn(t *testing.T, userID string) {
	t.Helper()
	err := e.tokens.Save(context.Background(), userID, model.AccessToken{Value: "ya29.test", ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Save token failed: %v", err)
	}
}

func (e *testEnv) writeFile(t *testing.T, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.mediaDir, name), make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}
