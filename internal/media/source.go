// Package media reads lecture recordings that are about to be uploaded.
package media

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
)

var ErrNotFound = errors.New("media not found")

// Info describes a stored recording.
type Info struct {
	Key         string
	Name        string
	ContentType string
	Size        int64
}

// Source gives access to recordings by key.
type Source interface {
	Stat(ctx context.Context, key string) (*Info, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// videoTypes covers extensions missing from many system MIME tables.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".3gp":  "video/3gpp",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",
}

// typeByName guesses a content type from the file extension. It returns ""
// when the extension is unknown.
func typeByName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ""
	}
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}
