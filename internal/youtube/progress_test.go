package youtube

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"
)

func TestProgressReader(t *testing.T) {
	tests := []struct {
		name  string
		total int
		chunk int
	}{
		{"one byte reads", 200, 1},
		{"uneven chunks", 2_000_000, 32 * 1024},
		{"single read", 4096, 8192},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []int
			src := io.LimitReader(bytes.NewReader(make([]byte, tt.total)), int64(tt.total))
			pr := newProgressReader(src, int64(tt.total), func(p int) { calls = append(calls, p) })

			buf := make([]byte, tt.chunk)
			for {
				_, err := pr.Read(buf)
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Read failed: %v", err)
				}
			}

			if len(calls) == 0 {
				t.Fatal("Expected progress calls")
			}
			terminal := 0
			for i, p := range calls {
				if p > MaxTransferPercent {
					t.Fatalf("Progress %d above cap", p)
				}
				if i > 0 && p <= calls[i-1] {
					t.Fatalf("Progress not increasing: %v", calls)
				}
				if p == MaxTransferPercent {
					terminal++
				}
			}
			if terminal != 1 || calls[len(calls)-1] != MaxTransferPercent {
				t.Errorf("Expected exactly one terminal %d at the end, got %v", MaxTransferPercent, calls)
			}
		})
	}
}

func TestProgressReader_NilCallback(t *testing.T) {
	pr := newProgressReader(iotest.HalfReader(bytes.NewReader(make([]byte, 100))), 100, nil)
	n, err := io.Copy(io.Discard, pr)
	if err != nil || n != 100 {
		t.Errorf("Expected 100 bytes, got %d, %v", n, err)
	}
}
