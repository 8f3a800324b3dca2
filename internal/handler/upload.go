package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/coursecast/internal/auth"
	"github.com/jun/coursecast/internal/markdown"
	"github.com/jun/coursecast/internal/media"
	"github.com/jun/coursecast/internal/model"
	"github.com/jun/coursecast/internal/upload"
	"github.com/jun/coursecast/internal/youtube"
	"github.com/rs/zerolog/log"
)

// UploadHandler starts uploads and reports on them.
type UploadHandler struct {
	uploads   *upload.Service
	renderer  *markdown.Renderer
	jwtSecret string
	async     bool
}

// NewUploadHandler creates a new UploadHandler. With async set, CreateUpload
// answers 202 with the pending job and the transfer continues in the
// background; otherwise it answers 201 once the upload has finished.
func NewUploadHandler(uploads *upload.Service, renderer *markdown.Renderer, jwtSecret string, async bool) *UploadHandler {
	return &UploadHandler{uploads: uploads, renderer: renderer, jwtSecret: jwtSecret, async: async}
}

type createUploadRequest struct {
	UploadID          string   `json:"upload_id"`
	ContentRecordID   string   `json:"content_record_id"`
	SourceKey         string   `json:"source_key"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	DescriptionFormat string   `json:"description_format"`
	Tags              []string `json:"tags"`
	CategoryID        string   `json:"category_id"`
	PrivacyStatus     string   `json:"privacy_status"`
	MadeForKids       bool     `json:"made_for_kids"`
}

var privacyStatuses = map[string]bool{"": true, "private": true, "unlisted": true, "public": true}

// CreateUpload starts an upload and returns its job.
func (h *UploadHandler) CreateUpload(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}

	var body createUploadRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	if strings.TrimSpace(body.SourceKey) == "" {
		return errorResponse(http.StatusBadRequest, "source_key is required"), nil
	}
	if !privacyStatuses[body.PrivacyStatus] {
		return errorResponse(http.StatusBadRequest, "privacy_status must be private, unlisted or public"), nil
	}

	start, status := h.uploads.UploadVideo, http.StatusCreated
	if h.async {
		start, status = h.uploads.StartUpload, http.StatusAccepted
	}

	job, err := start(ctx, userID, upload.Request{
		UploadID:        body.UploadID,
		ContentRecordID: body.ContentRecordID,
		SourceKey:       body.SourceKey,
		Metadata: model.VideoMetadata{
			Title:         body.Title,
			Description:   body.Description,
			Tags:          body.Tags,
			CategoryID:    body.CategoryID,
			PrivacyStatus: body.PrivacyStatus,
			MadeForKids:   body.MadeForKids,
		},
		DescriptionFormat: body.DescriptionFormat,
	})
	if err != nil {
		return uploadErrorResponse(err), nil
	}
	return jsonResponse(status, job), nil
}

// uploadErrorResponse maps upload failures to responses. YouTube's own
// status and body are passed through so the admin sees what went wrong.
func uploadErrorResponse(err error) events.APIGatewayProxyResponse {
	var (
		vErr *youtube.ValidationError
		sErr *youtube.SessionInitError
		tErr *youtube.TransportError
		pErr *youtube.ProtocolError
	)
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		return errorResponse(http.StatusUnauthorized, "YouTube account is not connected")
	case errors.As(err, &vErr):
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "Invalid video file", "violations": vErr.Violations})
	case errors.Is(err, media.ErrNotFound):
		return errorResponse(http.StatusNotFound, "Video file not found")
	case errors.Is(err, upload.ErrJobExists):
		return errorResponse(http.StatusConflict, "Upload id already used")
	case errors.As(err, &sErr):
		if youtube.IsUnauthorized(err) {
			return errorResponse(http.StatusUnauthorized, "YouTube rejected the stored token, reconnect the account")
		}
		return jsonResponse(http.StatusBadGateway, map[string]any{"error": sErr.Error(), "status": sErr.Status, "body": sErr.Body})
	case errors.As(err, &tErr):
		if youtube.IsUnauthorized(err) {
			return errorResponse(http.StatusUnauthorized, "YouTube rejected the stored token, reconnect the account")
		}
		return jsonResponse(http.StatusBadGateway, map[string]any{"error": tErr.Error(), "status": tErr.Status, "body": tErr.Body})
	case errors.As(err, &pErr):
		return errorResponse(http.StatusBadGateway, pErr.Error())
	default:
		log.Error().Err(err).Msg("Upload failed")
		return errorResponse(http.StatusInternalServerError, "Upload failed")
	}
}

// GetUpload returns a job owned by the caller.
func (h *UploadHandler) GetUpload(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}

	id := req.PathParameters["id"]
	job, err := h.uploads.Jobs().Get(ctx, id)
	if errors.Is(err, upload.ErrJobNotFound) || (err == nil && job.UserID != userID) {
		return errorResponse(http.StatusNotFound, "Upload not found"), nil
	}
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return jsonResponse(http.StatusOK, job), nil
}

// PreviewDescription renders a Markdown description both as the portal
// shows it and as YouTube will receive it.
func (h *UploadHandler) PreviewDescription(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetUserID(req, h.jwtSecret); err != nil {
		return errorResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}

	var body struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	html, err := h.renderer.Render([]byte(body.Description))
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return jsonResponse(http.StatusOK, map[string]string{
		"html": string(html),
		"text": h.renderer.PlainText([]byte(body.Description)),
	}), nil
}
