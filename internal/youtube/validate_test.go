package youtube

import (
	"errors"
	"testing"
)

func TestConstraints_Validate(t *testing.T) {
	c := Constraints{AllowedTypes: []string{"video/mp4"}, MinBytes: 1024, MaxBytes: 10_000}

	tests := []struct {
		name       string
		file       FileInfo
		violations int
	}{
		{"valid", FileInfo{ContentType: "video/mp4", Size: 1025}, 0},
		{"at max", FileInfo{ContentType: "video/mp4", Size: 10_000}, 0},
		{"uppercase type with params", FileInfo{ContentType: "Video/MP4; codecs=avc1", Size: 2048}, 0},
		{"at min", FileInfo{ContentType: "video/mp4", Size: 1024}, 1},
		{"over max", FileInfo{ContentType: "video/mp4", Size: 10_001}, 1},
		{"wrong type", FileInfo{ContentType: "video/webm", Size: 2048}, 1},
		{"wrong type and empty", FileInfo{ContentType: "image/gif", Size: 0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Validate(tt.file)
			if tt.violations == 0 {
				if err != nil {
					t.Errorf("Expected valid, got %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if len(vErr.Violations) != tt.violations {
				t.Errorf("Expected %d violations, got %v", tt.violations, vErr.Violations)
			}
		})
	}
}

func TestDefaultConstraints(t *testing.T) {
	c := DefaultConstraints()
	if err := c.Validate(FileInfo{ContentType: "video/quicktime", Size: 5 << 20}); err != nil {
		t.Errorf("Expected mov to be accepted: %v", err)
	}
	if err := c.Validate(FileInfo{ContentType: "video/mp4", Size: DefaultMaxBytes + 1}); err == nil {
		t.Error("Expected oversize file to be rejected")
	}
}
