package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jun/coursecast/internal/model"
	"google.golang.org/api/youtube/v3"
)

// Upload sends body to the session URL in a single PUT and returns the
// created video. body must yield exactly sess.FileSize bytes.
func (c *Client) Upload(ctx context.Context, sess *model.UploadSession, body io.Reader, onProgress ProgressFunc) (*model.RemoteVideo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sess.LocationURL, newProgressReader(body, sess.FileSize, onProgress))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.ContentLength = sess.FileSize
	req.Header.Set("Content-Type", sess.ContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Status: resp.StatusCode, Body: string(data)}
	}

	var video youtube.Video
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Body: string(data), Err: fmt.Errorf("parse response: %w", err)}
	}
	if video.Id == "" {
		return nil, &ProtocolError{Op: "upload video", Msg: "response has no video id"}
	}

	return c.describe(&video), nil
}

func (c *Client) describe(v *youtube.Video) *model.RemoteVideo {
	rv := &model.RemoteVideo{
		VideoID:  v.Id,
		VideoURL: c.WatchURL(v.Id),
	}
	if v.Snippet != nil {
		rv.Title = v.Snippet.Title
		rv.Description = v.Snippet.Description
		rv.ThumbnailURL = thumbnailURL(v.Snippet.Thumbnails)
	}
	return rv
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
