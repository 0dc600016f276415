package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestKey(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*60*60))

	got := Key("Comparison", at, "a.png", "b.png")

	parts := strings.Split(got, "/")
	if len(parts) != 3 {
		t.Fatalf("Expected three segments, got %q", got)
	}
	if diff := cmp.Diff("Comparison", parts[0]); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if len(parts[1]) != 16 {
		t.Errorf("Expected a 16 digit hash, got %q", parts[1])
	}
	if diff := cmp.Diff("20240101180405", parts[2]); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if Key("Comparison", at, "a.png", "b.png") != got {
		t.Errorf("Expected a stable key")
	}
	if Key("Comparison", at, "a.png", "c.png") == got {
		t.Errorf("Expected different inputs to hash differently")
	}
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(context.Background(), FileConfig{Directory: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := s.Put(context.Background(), "Comparison/abc/20240102030405/report.json", []byte(`{"type":"image"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(filepath.Join(dir, "Comparison", "abc", "20240102030405", "report.json"), url); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	for _, u := range []string{url, "file://" + url} {
		got, err := s.Get(context.Background(), u)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(`{"type":"image"}`, string(got)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	}

	if _, err := s.Get(context.Background(), filepath.Join(dir, "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected a not-exist error, got %v", err)
	}
}

func TestFileStoragePut(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(context.Background(), FileConfig{Directory: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("Overwrite", func(t *testing.T) {
		for _, data := range []string{"first", "second"} {
			if _, err := s.Put(context.Background(), "a/b.txt", []byte(data)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		got, err := s.Get(context.Background(), filepath.Join(dir, "a", "b.txt"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff("second", string(got)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		entries, err := os.ReadDir(filepath.Join(dir, "a"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("Expected no leftover temporary files, got %d entries", len(entries))
		}
	})

	for _, key := range []string{"../escape.txt", "/etc/passwd", ""} {
		t.Run("Invalid"+key, func(t *testing.T) {
			if _, err := s.Put(context.Background(), key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if diff := cmp.Diff("image/png", contentType("a/diff.png", nil)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := contentType("a/report.json", nil); !strings.HasPrefix(got, "application/json") {
		t.Errorf("Expected application/json, got %s", got)
	}
	if got := contentType("a/blob", []byte("\x89PNG\r\n\x1a\n")); got != "image/png" {
		t.Errorf("Expected sniffed image/png, got %s", got)
	}
}
