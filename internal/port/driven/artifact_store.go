package driven

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrArtifactNotFound is returned when no rendered playlist has been written yet.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore defines the interface for persisting the rendered playlist.
// The modification time of the stored artifact is the only cache state.
type ArtifactStore interface {
	// ModTime returns the last write time of the artifact.
	// Returns ErrArtifactNotFound if the artifact does not exist.
	ModTime(ctx context.Context) (time.Time, error)

	// Write atomically replaces the artifact with the content produced by w.
	// Readers never observe a partially written artifact.
	Write(ctx context.Context, w io.WriterTo) error

	// Open returns a reader over the current artifact.
	// Returns ErrArtifactNotFound if the artifact does not exist.
	Open(ctx context.Context) (io.ReadSeekCloser, error)
}
