package driver

import (
	"net/http"
)

// HealthHTTPHandler handles HTTP requests for health checks.
type HealthHTTPHandler struct {
	service PlaylistService
}

// NewHealthHTTPHandler creates a new HTTP handler for health checks.
func NewHealthHTTPHandler(service PlaylistService) *HealthHTTPHandler {
	return &HealthHTTPHandler{service: service}
}

// healthResponse represents the JSON response for health check endpoint.
type healthResponse struct {
	Status             string `json:"status"`
	ArtifactAgeSeconds *int64 `json:"artifact_age_seconds"`
	TTLSeconds         int64  `json:"ttl_seconds"`
}

// ServeHTTP handles GET /health
func (h *HealthHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := h.service.Status(r.Context())

	resp := healthResponse{
		Status:     "ok",
		TTLSeconds: int64(status.TTL.Seconds()),
	}
	httpStatus := http.StatusOK

	if status.Ready {
		age := int64(status.Age.Seconds())
		resp.ArtifactAgeSeconds = &age
	} else {
		resp.Status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
