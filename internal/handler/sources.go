package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/service"
)

const probeTimeout = 5 * time.Second

// SourcesHandler exposes the configured data sources and their schemas.
type SourcesHandler struct {
	registry *service.Registry
	schemas  *schema.Cache
}

func NewSourcesHandler(registry *service.Registry, schemas *schema.Cache) *SourcesHandler {
	return &SourcesHandler{registry: registry, schemas: schemas}
}

// List handles GET /api/v1/sources
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	models.WriteJSON(w, http.StatusOK, models.SourcesResponse{
		Status:  "success",
		Sources: h.registry.Sources(ctx),
	})
}

// Schema handles GET /api/v1/sources/{source}/schema
func (h *SourcesHandler) Schema(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	runner, err := h.registry.Get(source)
	if err != nil {
		models.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	descriptor, err := h.schemas.Get(r.Context(), source, runner.Schema)
	if err != nil {
		models.WriteError(w, http.StatusBadGateway, "schema introspection failed: "+err.Error())
		return
	}

	models.WriteJSON(w, http.StatusOK, models.SchemaResponse{
		Status:  "success",
		Source:  source,
		Tables:  descriptor.Tables,
		Summary: schema.Summarize(descriptor),
	})
}
