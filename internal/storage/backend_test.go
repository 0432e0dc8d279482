// -------------------------------------------------------------------------------
// Backend Tests - Object Key Generation and Error Classification
//
// Project: KCloud / Author: Alex Freidah
// -------------------------------------------------------------------------------

package storage

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/nestorara/kcloud-music-api/internal/faults"
)

func TestNewObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		original string
		wantExt  string
	}{
		{"keeps extension", "track.mp3", ".mp3"},
		{"lowercases extension", "COVER.PNG", ".png"},
		{"compound name", "my song (final).v2.wav", ".wav"},
		{"no extension", "README", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewObjectKey(tt.original)
			if !strings.HasSuffix(key, tt.wantExt) {
				t.Errorf("key %q does not end in %q", key, tt.wantExt)
			}
			// 26-char ULID plus extension, nothing from the original name.
			if len(key) != 26+len(tt.wantExt) {
				t.Errorf("key %q has unexpected length %d", key, len(key))
			}
			if tt.original != "README" && strings.Contains(key, strings.TrimSuffix(tt.original, tt.wantExt)) {
				t.Errorf("key %q leaks the original filename", key)
			}
		})
	}
}

func TestNewObjectKey_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key := NewObjectKey("a.mp3")
		if seen[key] {
			t.Fatalf("duplicate key generated: %q", key)
		}
		seen[key] = true
	}
}

func TestClassify(t *testing.T) {
	b := &S3Backend{}

	tests := []struct {
		name string
		err  error
		want faults.Kind
	}{
		{"deadline exceeded", context.DeadlineExceeded, faults.Timeout},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "bucket.example"}, faults.ServiceUnavailable},
		{"connection refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, faults.ServiceUnavailable},
		{"anything else", errors.New("boom"), faults.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := b.classify(tt.err, "error uploading file", "Upload")
			if f.Kind != tt.want {
				t.Errorf("kind = %v, want %v", f.Kind, tt.want)
			}
			if !errors.Is(f, tt.err) {
				t.Error("original error is not reachable through the fault")
			}
		})
	}
}
