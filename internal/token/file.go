package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jun/coursecast/internal/model"
)

// fileToken is the on-disk format, one file per user.
type fileToken struct {
	Value       string `json:"value"`
	ExpiresAtMs int64  `json:"expires_at_ms"`
}

// FileBackend stores tokens as JSON files under a directory. Used by the CLI.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (f *FileBackend) path(userID string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(userID))+".json")
}

func (f *FileBackend) Get(_ context.Context, userID string) (*model.AccessToken, error) {
	data, err := os.ReadFile(f.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var ft fileToken
	if err := json.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &model.AccessToken{Value: ft.Value, ExpiresAt: time.UnixMilli(ft.ExpiresAtMs)}, nil
}

func (f *FileBackend) Put(_ context.Context, userID string, tok model.AccessToken) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.Marshal(fileToken{Value: tok.Value, ExpiresAtMs: tok.ExpiresAt.UnixMilli()})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path(userID))
}

func (f *FileBackend) Delete(_ context.Context, userID string) error {
	err := os.Remove(f.path(userID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
