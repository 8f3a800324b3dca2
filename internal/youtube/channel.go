package youtube

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jun/coursecast/internal/model"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Channel returns the channel owned by the account behind tok.
func (c *Client) Channel(ctx context.Context, tok model.AccessToken) (*model.Channel, error) {
	hc := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok.Value, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
		Timeout: c.httpClient.Timeout,
	}

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.apiBaseURL != "" {
		opts = append(opts, option.WithEndpoint(c.apiBaseURL))
	}
	srv, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube client: %w", err)
	}

	resp, err := srv.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list channels: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, ErrNoChannel
	}

	ch := resp.Items[0]
	out := &model.Channel{ID: ch.Id}
	if ch.Snippet != nil {
		out.Title = ch.Snippet.Title
	}
	return out, nil
}
