// Package notify tells the course backend which YouTube video belongs to a
// content record.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jun/coursecast/internal/model"
)

const (
	ServiceSubject  = "coursecast-uploader"
	tokenLifetime   = 5 * time.Minute
	defaultTimeout  = 10 * time.Second
	maxErrorBodyLen = 4096
)

type videoPayload struct {
	YouTubeURL  string `json:"youtubeUrl"`
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoID     string `json:"videoId"`
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded with status %d: %s", e.Status, e.Body)
}

// Notifier posts finished uploads to the internal content API.
type Notifier struct {
	baseURL    string
	jwtSecret  []byte
	httpClient *http.Client
	now        func() time.Time
}

// NewNotifier creates a Notifier for the backend at baseURL. Requests carry
// an HS256 token signed with jwtSecret.
func NewNotifier(baseURL string, jwtSecret []byte, httpClient *http.Client) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Notifier{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		jwtSecret:  jwtSecret,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (n *Notifier) serviceToken() (string, error) {
	now := n.now()
	claims := jwt.RegisteredClaims{
		Subject:   ServiceSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.jwtSecret)
}

// NotifyBackend records video against the content record contentRecordID.
func (n *Notifier) NotifyBackend(ctx context.Context, contentRecordID string, video model.RemoteVideo) error {
	body, err := json.Marshal(videoPayload{
		YouTubeURL:  video.VideoURL,
		Title:       video.Title,
		Description: video.Description,
		VideoID:     video.VideoID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	tok, err := n.serviceToken()
	if err != nil {
		return fmt.Errorf("failed to sign service token: %w", err)
	}

	endpoint := n.baseURL + "/internal/content/" + url.PathEscape(contentRecordID) + "/video"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to notify backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return &StatusError{Status: resp.StatusCode, Body: string(data)}
	}
	return nil
}
