package token

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jun/coursecast/internal/model"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)
	ctx := context.Background()

	expires := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())
	if err := b.Put(ctx, "local", model.AccessToken{Value: "ya29.file", ExpiresAt: expires}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	info, err := os.Stat(b.path("local"))
	if err != nil {
		t.Fatalf("Expected token file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	got, err := b.Get(ctx, "local")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Value != "ya29.file" || !got.ExpiresAt.Equal(expires) {
		t.Errorf("Unexpected token: %+v", got)
	}

	if err := b.Delete(ctx, "local"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, err := b.Get(ctx, "local"); got != nil || err != nil {
		t.Errorf("Expected nil, nil after delete; got %+v, %v", got, err)
	}
}

func TestFileBackend_UserIDCannotEscapeDir(t *testing.T) {
	b := NewFileBackend("/tmp/tokens")
	p := b.path("../../etc/passwd")
	if len(p) < len("/tmp/tokens/") || p[:len("/tmp/tokens/")] != "/tmp/tokens/" {
		t.Errorf("Path escaped token dir: %s", p)
	}
}

func TestFileBackend_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)
	os.WriteFile(b.path("local"), []byte("{not json"), 0o600)

	if _, err := b.Get(context.Background(), "local"); err == nil {
		t.Error("Expected parse error for corrupt token file")
	}
}
