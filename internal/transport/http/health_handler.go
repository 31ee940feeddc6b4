package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"zipcsv/internal/infrastructure"
	"zipcsv/pkg/contracts"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	System    map[string]interface{} `json:"system"`
	Timestamp time.Time              `json:"timestamp"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(startTime time.Time, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		startTime: startTime,
		logger:    logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := infrastructure.ReadSystemStats(h.startTime)
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Version:   contracts.Version,
		Uptime:    stats.ProcessUptime.Round(time.Second).String(),
		System:    stats.FormatStats(),
		Timestamp: stats.Timestamp,
	})
}

// Version handles GET /version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
