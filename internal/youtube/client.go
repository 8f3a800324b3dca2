// Package youtube uploads videos to YouTube through the resumable upload protocol.
//
// An upload is two requests: CreateSession reserves an upload URL for one file
// and Upload sends the whole file to it in a single PUT. A failed transfer is
// not resumed; the caller starts over with a new session.
package youtube

import "net/http"

const (
	DefaultUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"
	DefaultWatchURL  = "https://www.youtube.com/watch?v="
)

// Client talks to the YouTube upload endpoint and Data API.
type Client struct {
	httpClient  *http.Client
	uploadURL   string
	apiBaseURL  string
	watchURL    string
	constraints Constraints
}

type Option func(*Client)

// WithHTTPClient sets the client used for every request. Tokens are attached
// per call, so it must not add its own Authorization header.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUploadURL overrides the resumable upload endpoint.
func WithUploadURL(u string) Option {
	return func(c *Client) { c.uploadURL = u }
}

// WithAPIBaseURL overrides the Data API base path, e.g. "http://127.0.0.1:8080/".
func WithAPIBaseURL(u string) Option {
	return func(c *Client) { c.apiBaseURL = u }
}

// WithWatchURL overrides the prefix that video ids are appended to.
func WithWatchURL(u string) Option {
	return func(c *Client) { c.watchURL = u }
}

// WithConstraints replaces the file constraints checked before a session is created.
func WithConstraints(cs Constraints) Option {
	return func(c *Client) { c.constraints = cs }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  http.DefaultClient,
		uploadURL:   DefaultUploadURL,
		watchURL:    DefaultWatchURL,
		constraints: DefaultConstraints(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Constraints returns the file constraints enforced by CreateSession.
func (c *Client) Constraints() Constraints {
	return c.constraints
}

// WatchURL returns the public URL of a video.
func (c *Client) WatchURL(videoID string) string {
	return c.watchURL + videoID
}
