package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/service"
)

const version = "1.0.0"

// HealthHandler handles GET /health with per-source dependency checks
type HealthHandler struct {
	registry *service.Registry
}

func NewHealthHandler(registry *service.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok"}
	overallStatus := "healthy"

	// Use a short timeout for health checks so they don't block
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, src := range h.registry.Sources(ctx) {
		if src.Status == "ok" {
			checks[src.Name] = "ok"
			continue
		}
		checks[src.Name] = "unavailable: " + src.Error
		overallStatus = "degraded"
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	models.WriteJSON(w, statusCode, models.HealthResponse{
		Status:  overallStatus,
		Version: version,
		Checks:  checks,
	})
}
