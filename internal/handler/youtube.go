package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/coursecast/internal/auth"
	"github.com/jun/coursecast/internal/model"
	"github.com/jun/coursecast/internal/youtube"
	"github.com/rs/zerolog/log"
)

// ChannelLister looks up the channel behind a token.
type ChannelLister interface {
	Channel(ctx context.Context, tok model.AccessToken) (*model.Channel, error)
}

// YouTubeHandler connects and disconnects an admin's YouTube account.
type YouTubeHandler struct {
	authService *auth.Service
	channels    ChannelLister
	jwtSecret   string
	frontendURL string
}

// NewYouTubeHandler creates a new YouTubeHandler. After the OAuth callback
// the browser is sent back to frontendURL.
func NewYouTubeHandler(s *auth.Service, channels ChannelLister, jwtSecret, frontendURL string) *YouTubeHandler {
	return &YouTubeHandler{
		authService: s,
		channels:    channels,
		jwtSecret:   jwtSecret,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

// Connect redirects the browser to Google's consent screen.
func (h *YouTubeHandler) Connect(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}

	authURL, err := h.authService.BeginAuthorization(ctx, userID)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return redirect(authURL), nil
}

// Callback completes the authorization and sends the browser back to the portal.
func (h *YouTubeHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}

	query := url.Values{}
	for k, v := range req.QueryStringParameters {
		query.Set(k, v)
	}
	callback := &url.URL{Path: req.Path, RawQuery: query.Encode()}

	result := url.Values{}
	if _, err := h.authService.CompleteAuthorization(ctx, userID, callback); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("YouTube authorization failed")
		result.Set("youtube_error", callbackMessage(err))
	} else {
		result.Set("youtube", "connected")
	}
	return redirect(h.frontendURL + "/?" + result.Encode()), nil
}

func callbackMessage(err error) string {
	var oauthErr *auth.OAuthError
	var exErr *auth.TokenExchangeError
	switch {
	case errors.As(err, &oauthErr):
		if oauthErr.Code == "access_denied" {
			return "Access to YouTube was denied"
		}
		return "Authorization failed: " + oauthErr.Code
	case errors.As(err, &exErr):
		return fmt.Sprintf("Token exchange failed (status %d)", exErr.Status)
	default:
		return "Authorization failed"
	}
}

type statusResponse struct {
	Connected bool           `json:"connected"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Channel   *model.Channel `json:"channel,omitempty"`
}

// Status reports whether a usable token is stored and which channel it belongs to.
func (h *YouTubeHandler) Status(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}

	tok, err := h.authService.Token(ctx, userID)
	if err != nil {
		return jsonResponse(http.StatusOK, statusResponse{Connected: false}), nil
	}

	resp := statusResponse{Connected: true, ExpiresAt: &tok.ExpiresAt}
	if h.channels != nil {
		ch, err := h.channels.Channel(ctx, *tok)
		switch {
		case err == nil:
			resp.Channel = ch
		case youtube.IsUnauthorized(err):
			if err := h.authService.SignOut(ctx, userID); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("Failed to clear rejected token")
			}
			return jsonResponse(http.StatusOK, statusResponse{Connected: false}), nil
		default:
			log.Warn().Err(err).Str("user_id", userID).Msg("Channel lookup failed")
		}
	}
	return jsonResponse(http.StatusOK, resp), nil
}

// Disconnect forgets the stored token.
func (h *YouTubeHandler) Disconnect(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}

	if err := h.authService.SignOut(ctx, userID); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
}
