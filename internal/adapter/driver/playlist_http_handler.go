package driver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/usanli/acestream-playlist/internal/application"
)

const playlistFilename = "playlist.m3u8"

// PlaylistService is the part of the refresh service the HTTP handlers use.
type PlaylistService interface {
	Refresh(ctx context.Context, force bool) (application.RefreshResult, error)
	Status(ctx context.Context) application.Status
	Open(ctx context.Context) (io.ReadSeekCloser, time.Time, error)
}

var _ PlaylistService = (*application.RefreshService)(nil)

// PlaylistHTTPHandler serves the playlist artifact.
type PlaylistHTTPHandler struct {
	service PlaylistService
	logger  *slog.Logger
}

// NewPlaylistHTTPHandler creates a new HTTP handler for the playlist.
func NewPlaylistHTTPHandler(service PlaylistService, logger *slog.Logger) *PlaylistHTTPHandler {
	return &PlaylistHTTPHandler{
		service: service,
		logger:  logger,
	}
}

// ServeHTTP handles GET|HEAD /playlist.m3u8
func (h *PlaylistHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// The rebuild outlives a disconnecting client.
	ctx := context.WithoutCancel(r.Context())
	if _, err := h.service.Refresh(ctx, false); err != nil {
		h.logger.Warn("serving previous playlist after refresh failure", "error", err, "remote_addr", r.RemoteAddr)
	}

	f, modTime, err := h.service.Open(ctx)
	if err != nil {
		h.logger.Warn("playlist not available", "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, "Playlist not ready", http.StatusServiceUnavailable)
		return
	}
	defer f.Close()

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "max-age=3600, private, must-revalidate")
	w.Header().Set("Content-Disposition", "attachment; filename="+playlistFilename)
	w.Header().Set("Content-Type", "audio/mpegurl")

	http.ServeContent(w, r, playlistFilename, modTime, f)
}
