package youtube

import (
	"fmt"
	"mime"
	"slices"
	"strings"
)

// DefaultAllowedTypes are the container formats YouTube accepts that lecture
// recordings are realistically delivered in.
var DefaultAllowedTypes = []string{
	"video/mp4",
	"video/quicktime",
	"video/webm",
	"video/x-matroska",
	"video/x-msvideo",
	"video/mpeg",
	"video/3gpp",
	"video/x-flv",
	"video/x-ms-wmv",
}

const (
	DefaultMinBytes int64 = 1024
	DefaultMaxBytes int64 = 256 << 30
)

// Constraints bound the files accepted for upload. A size is valid when
// MinBytes < size <= MaxBytes.
type Constraints struct {
	AllowedTypes []string
	MinBytes     int64
	MaxBytes     int64
}

func DefaultConstraints() Constraints {
	return Constraints{
		AllowedTypes: slices.Clone(DefaultAllowedTypes),
		MinBytes:     DefaultMinBytes,
		MaxBytes:     DefaultMaxBytes,
	}
}

// FileInfo describes the file about to be uploaded.
type FileInfo struct {
	Name        string
	ContentType string
	Size        int64
}

// ValidationError lists every constraint a file violates.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid video file: " + strings.Join(e.Violations, "; ")
}

// Validate checks f against c without touching the network.
func (c Constraints) Validate(f FileInfo) error {
	var violations []string

	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil {
		violations = append(violations, fmt.Sprintf("content type %q is not a valid media type", f.ContentType))
	} else if !slices.ContainsFunc(c.AllowedTypes, func(t string) bool { return strings.EqualFold(t, mediaType) }) {
		violations = append(violations, fmt.Sprintf("content type %q is not an accepted video type", mediaType))
	}

	if f.Size <= c.MinBytes {
		violations = append(violations, fmt.Sprintf("file size %d bytes must be larger than %d bytes", f.Size, c.MinBytes))
	}
	if f.Size > c.MaxBytes {
		violations = append(violations, fmt.Sprintf("file size %d bytes exceeds the limit of %d bytes", f.Size, c.MaxBytes))
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
