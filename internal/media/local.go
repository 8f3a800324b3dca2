package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// LocalSource reads recordings below a root directory. Keys are slash
// separated paths relative to the root and cannot leave it.
type LocalSource struct {
	root string
}

func NewLocalSource(root string) *LocalSource {
	return &LocalSource{root: root}
}

func (l *LocalSource) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(l.root, rel), nil
}

func (l *LocalSource) Stat(_ context.Context, key string) (*Info, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat media file: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", key, ErrNotFound)
	}

	contentType := typeByName(fi.Name())
	if contentType == "" {
		if contentType, err = sniff(p); err != nil {
			return nil, err
		}
	}

	return &Info{
		Key:         key,
		Name:        fi.Name(),
		ContentType: contentType,
		Size:        fi.Size(),
	}, nil
}

func sniff(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}
	return http.DetectContentType(buf[:n]), nil
}

func (l *LocalSource) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open media file: %w", err)
	}
	return f, nil
}
