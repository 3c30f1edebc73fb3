package driven

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/usanli/acestream-playlist/internal/port/driven"
)

// FileArtifactStore implements the ArtifactStore port on a single file.
// The file's modification time is the cache timestamp.
type FileArtifactStore struct {
	path string
}

// NewFileArtifactStore creates a store for the artifact at path.
// It ensures the parent directory exists before returning.
func NewFileArtifactStore(path string) (*FileArtifactStore, error) {
	if path == "" {
		return nil, fmt.Errorf("artifact path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &FileArtifactStore{path: path}, nil
}

// Path returns the artifact file path.
func (s *FileArtifactStore) Path() string {
	return s.path
}

// ModTime returns the modification time of the artifact file.
func (s *FileArtifactStore) ModTime(ctx context.Context) (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, driven.ErrArtifactNotFound
		}
		return time.Time{}, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return info.ModTime(), nil
}

// Write renders w into a temporary file next to the artifact and renames it
// into place, so readers see either the old or the new document.
func (s *FileArtifactStore) Write(ctx context.Context, w io.WriterTo) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := w.WriteTo(tmp); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace artifact: %w", err)
	}

	committed = true
	return nil
}

// Open opens the artifact for reading.
func (s *FileArtifactStore) Open(ctx context.Context) (io.ReadSeekCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, driven.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

// Ensure FileArtifactStore implements the driven.ArtifactStore interface
var _ driven.ArtifactStore = (*FileArtifactStore)(nil)
