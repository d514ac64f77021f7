package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/querypilot/querypilot/internal/executor"
	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/service"
)

// QueryHandler handles direct SQL execution against a named source.
type QueryHandler struct {
	registry *service.Registry
	guards   Guards
}

func NewQueryHandler(registry *service.Registry, guards Guards) *QueryHandler {
	return &QueryHandler{registry: registry, guards: guards}
}

// Execute handles POST /api/v1/query
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()

	if req.Source == "" {
		models.WriteError(w, http.StatusBadRequest, "source is required")
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		models.WriteError(w, http.StatusBadRequest, models.ErrEmptySQL.Error())
		return
	}
	if !req.Safe() && !h.guards.AllowUnsafe {
		models.WriteError(w, http.StatusBadRequest, "unsafe queries are disabled")
		return
	}

	runner, err := h.registry.Get(req.Source)
	if err != nil {
		models.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(req.TimeoutMs)*time.Millisecond)
	defer cancel()

	apiKey := r.Header.Get("X-API-Key")
	result := executor.New(runner).Execute(ctx, req.SQL, executor.Options{
		SafeMode: req.Safe(),
		RowLimit: req.RowLimit,
	})

	bytesProcessed := int64(0)
	if result.Metadata != nil {
		if v, ok := result.Metadata["total_bytes_processed"].(int64); ok {
			bytesProcessed = v
		}
	}

	if !result.Success {
		h.guards.Audit.LogQuery(req.SQL, apiKey, req.Source, result.ExecutionTimeMs, 0, bytesProcessed, false, result.Error)
		models.WriteError(w, http.StatusInternalServerError, "query execution failed: "+result.Error)
		return
	}

	if ok, errMsg := h.guards.Cost.CheckLimits(bytesProcessed, apiKey); !ok {
		h.guards.Audit.LogQuery(req.SQL, apiKey, req.Source, result.ExecutionTimeMs, 0, bytesProcessed, false, errMsg)
		models.WriteError(w, http.StatusTooManyRequests, errMsg)
		return
	}
	h.guards.Cost.LogQueryCost(req.SQL, bytesProcessed, apiKey, result.ExecutionTimeMs)

	if h.guards.MaskRows {
		result.Rows = h.guards.Masker.MaskRows(result.Rows)
	}

	h.guards.Audit.LogQuery(req.SQL, apiKey, req.Source, result.ExecutionTimeMs, result.RowCount, bytesProcessed, true, "")

	models.WriteJSON(w, http.StatusOK, models.QueryResponse{
		Status: "success",
		Source: req.Source,
		Result: result,
	})
}
