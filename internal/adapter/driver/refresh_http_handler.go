package driver

import (
	"context"
	"log/slog"
	"net/http"
)

// RefreshHTTPHandler forces a playlist rebuild.
type RefreshHTTPHandler struct {
	service PlaylistService
	logger  *slog.Logger
}

// NewRefreshHTTPHandler creates a new HTTP handler for forced refreshes.
func NewRefreshHTTPHandler(service PlaylistService, logger *slog.Logger) *RefreshHTTPHandler {
	return &RefreshHTTPHandler{
		service: service,
		logger:  logger,
	}
}

type refreshResponse struct {
	Updated bool `json:"updated"`
	Items   int  `json:"items"`
}

// ServeHTTP handles POST /refresh
func (h *RefreshHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	h.logger.Info("forced refresh requested", "remote_addr", r.RemoteAddr)

	result, err := h.service.Refresh(context.WithoutCancel(r.Context()), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Updated: result.Updated,
		Items:   result.Items,
	})
}
