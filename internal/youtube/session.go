package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jun/coursecast/internal/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

// CreateSession validates file and asks YouTube for a resumable upload URL.
// Validation failures return *ValidationError before any request is made.
func (c *Client) CreateSession(ctx context.Context, file FileInfo, meta model.VideoMetadata, tok model.AccessToken) (*model.UploadSession, error) {
	if err := c.constraints.Validate(file); err != nil {
		return nil, err
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.PrivacyStatus,
			SelfDeclaredMadeForKids: meta.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
	body, err := json.Marshal(video)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal video resource: %w", err)
	}

	u, err := url.Parse(c.uploadURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upload URL: %w", err)
	}
	q := u.Query()
	q.Set("uploadType", "resumable")
	q.Set("part", "snippet,status")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &SessionInitError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", file.ContentType)
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(file.Size, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SessionInitError{Err: err}
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			return nil, &SessionInitError{Status: gErr.Code, Body: gErr.Body, Err: err}
		}
		return nil, &SessionInitError{Status: resp.StatusCode, Err: err}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, &ProtocolError{Op: "create upload session", Msg: "response has no Location header"}
	}

	return &model.UploadSession{
		LocationURL: location,
		FileSize:    file.Size,
		ContentType: file.ContentType,
	}, nil
}
