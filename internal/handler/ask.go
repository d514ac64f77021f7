package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/querypilot/querypilot/internal/executor"
	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/orchestrator"
	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/service"
)

// AskHandler handles POST /api/v1/ask, the natural-language entrypoint. It
// screens the question, routes it to a source, and hands the resolved run to
// the orchestrator.
type AskHandler struct {
	registry *service.Registry
	analyzer *service.IntentAnalyzer
	schemas  *schema.Cache
	pipeline *orchestrator.Pipeline
	guards   Guards
}

func NewAskHandler(
	registry *service.Registry,
	analyzer *service.IntentAnalyzer,
	schemas *schema.Cache,
	pipeline *orchestrator.Pipeline,
	guards Guards,
) *AskHandler {
	return &AskHandler{
		registry: registry,
		analyzer: analyzer,
		schemas:  schemas,
		pipeline: pipeline,
		guards:   guards,
	}
}

// Ask handles POST /api/v1/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()

	if strings.TrimSpace(req.Question) == "" {
		models.WriteError(w, http.StatusBadRequest, models.ErrEmptyQuestion.Error())
		return
	}
	if !req.Safe() && !h.guards.AllowUnsafe {
		models.WriteError(w, http.StatusBadRequest, "unsafe queries are disabled")
		return
	}
	if res := h.guards.Prompt.Validate(req.Question); !res.Valid {
		models.WriteError(w, http.StatusBadRequest, res.Message)
		return
	}
	if h.guards.DetectPII {
		if found, kw := h.guards.PII.Detect(req.Question); found {
			models.WriteError(w, http.StatusBadRequest, "question references sensitive data: "+kw)
			return
		}
	}

	routing, err := h.analyzer.RouteSource(req.Question, req.Source)
	if err != nil {
		if errors.Is(err, models.ErrSourceNotFound) {
			models.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		models.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	runner, err := h.registry.Get(routing.Source)
	if err != nil {
		models.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(req.Timeout)*time.Second)
	defer cancel()

	descriptor, err := h.schemas.Get(ctx, routing.Source, runner.Schema)
	if err != nil {
		models.WriteError(w, http.StatusBadGateway, "schema introspection failed: "+err.Error())
		return
	}
	intent := h.analyzer.Analyze(req.Question, descriptor)

	report := h.pipeline.Run(ctx, orchestrator.Request{
		Question:   req.Question,
		Context:    req.Context,
		Descriptor: descriptor,
		Intent:     intent,
		Executor:   executor.New(runner),
		Options:    executor.Options{SafeMode: req.Safe(), RowLimit: req.RowLimit},
		DryRun:     req.DryRun,
	})

	apiKey := r.Header.Get("X-API-Key")
	generatedSQL := ""
	if report.SQL != nil {
		generatedSQL = *report.SQL
	}
	h.guards.Audit.LogAskRequest(req.Question, apiKey, generatedSQL, report.Status != models.RunFailed, report.ElapsedMs)

	if report.Result != nil && h.guards.MaskRows {
		report.Result.Rows = h.guards.Masker.MaskRows(report.Result.Rows)
	}

	resp := models.AskResponse{
		Status:       string(report.Status),
		Question:     req.Question,
		Source:       routing.Source,
		GeneratedSQL: report.SQL,
		Result:       report.Result,
		Candidates:   report.Candidates,
		Verdicts:     report.Verdicts,
		Metadata: map[string]interface{}{
			"routing_confidence": routing.Confidence,
			"routing_reasoning":  routing.Reasoning,
			"improvements":       report.Improvements,
			"elapsed_ms":         report.ElapsedMs,
			"intent":             intent,
		},
	}
	if report.Error != "" {
		resp.Metadata["error"] = report.Error
	}

	status := http.StatusOK
	if report.Status == models.RunFailed {
		status = http.StatusBadRequest
	}
	models.WriteJSON(w, status, resp)
}
