// Package httphandler holds the JSON endpoints and the middleware shared by
// every route the server exposes.
package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/heaterpanel/internal/application"
)

// Handler is the HTTP driving adapter that serves the JSON API.
type Handler struct {
	devices *application.Devices
	started time.Time
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(devices *application.Devices, logger *slog.Logger) *Handler {
	return &Handler{
		devices: devices,
		started: time.Now(),
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterAPIRoutes registers the JSON API routes on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// Health reports liveness plus device session counts. A failing session
// store degrades the response to 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := HealthResponse{
		Status:        "ok",
		Time:          now.UTC().Format(time.RFC3339),
		Uptime:        now.Sub(h.started).Round(time.Second).String(),
		ActiveDevices: h.devices.Len(),
	}

	stored, err := h.devices.Stored(r.Context())
	if err != nil {
		h.logger.Error("health check: session store unavailable", "error", err)
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.StoredSessions = stored

	writeJSON(w, http.StatusOK, resp)
}
