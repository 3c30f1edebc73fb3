package driven

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/usanli/acestream-playlist/internal/port/driven"
)

type failingWriterTo struct{}

func (failingWriterTo) WriteTo(w io.Writer) (int64, error) {
	n, _ := io.WriteString(w, "#EXTM3U\npartial")
	return int64(n), errors.New("render failed")
}

func TestNewFileArtifactStore(t *testing.T) {
	t.Run("creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "playlist.m3u8")

		store, err := NewFileArtifactStore(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.Path() != path {
			t.Errorf("expected path %q, got %q", path, store.Path())
		}
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			t.Errorf("expected parent directory to exist: %v", err)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := NewFileArtifactStore(""); err == nil {
			t.Error("expected error for empty path")
		}
	})
}

func TestFileArtifactStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing artifact", func(t *testing.T) {
		store, _ := NewFileArtifactStore(filepath.Join(t.TempDir(), "playlist.m3u8"))

		if _, err := store.ModTime(ctx); !errors.Is(err, driven.ErrArtifactNotFound) {
			t.Errorf("expected ErrArtifactNotFound from ModTime, got %v", err)
		}
		if _, err := store.Open(ctx); !errors.Is(err, driven.ErrArtifactNotFound) {
			t.Errorf("expected ErrArtifactNotFound from Open, got %v", err)
		}
	})

	t.Run("write then read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playlist.m3u8")
		store, _ := NewFileArtifactStore(path)

		before := time.Now().Add(-time.Second)
		if err := store.Write(ctx, strings.NewReader("#EXTM3U\n")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		modTime, err := store.ModTime(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if modTime.Before(before) {
			t.Errorf("expected fresh modification time, got %v", modTime)
		}

		f, err := store.Open(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer f.Close()

		data, _ := io.ReadAll(f)
		if string(data) != "#EXTM3U\n" {
			t.Errorf("unexpected content %q", data)
		}

		info, _ := os.Stat(path)
		if info.Mode().Perm() != 0644 {
			t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
		}
	})

	t.Run("failed write keeps previous artifact", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "playlist.m3u8")
		store, _ := NewFileArtifactStore(path)

		if err := store.Write(ctx, strings.NewReader("old\n")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := store.Write(ctx, failingWriterTo{}); err == nil {
			t.Fatal("expected error")
		}

		data, _ := os.ReadFile(path)
		if string(data) != "old\n" {
			t.Errorf("expected previous artifact to be untouched, got %q", data)
		}

		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("expected temp file to be cleaned up, found %v", names)
		}
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		store, _ := NewFileArtifactStore(filepath.Join(t.TempDir(), "playlist.m3u8"))

		_ = store.Write(ctx, strings.NewReader("first\n"))
		_ = store.Write(ctx, strings.NewReader("second\n"))

		f, err := store.Open(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer f.Close()

		data, _ := io.ReadAll(f)
		if string(data) != "second\n" {
			t.Errorf("expected second content, got %q", data)
		}
	})
}
