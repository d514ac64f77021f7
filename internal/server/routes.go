package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/handler"
	"github.com/querypilot/querypilot/internal/middleware"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/security"
	"github.com/querypilot/querypilot/internal/service"
)

// setupRoutes returns (router, registry, error) so the registry can be closed
// on shutdown.
func (s *Server) setupRoutes() (http.Handler, *service.Registry, error) {
	cfg := s.cfg
	ctx := context.Background()

	registry := BuildRegistry(ctx, cfg)
	pipeline := BuildPipeline(cfg)
	schemas := schema.NewCache(time.Duration(cfg.SchemaCacheTTLSeconds) * time.Second)

	// ─── Security ────────────────────────────────────────────────────────────────
	guards := handler.Guards{
		Prompt:      security.NewPromptValidator(),
		PII:         security.NewPIIDetector(cfg.PIIKeywords),
		Masker:      security.NewDataMasker(cfg.SensitiveColumns),
		Cost:        security.NewCostTracker(cfg.EnableQueryCostTracking, cfg.MaxQueryBytesProcessed),
		Audit:       security.NewAuditLogger(cfg.EnableAuditLogging),
		MaskRows:    cfg.EnableDataMasking,
		DetectPII:   cfg.EnablePIIDetection,
		AllowUnsafe: cfg.AllowUnsafeQueries,
	}

	log.Info().
		Strs("sources", registry.Names()).
		Str("generation_model", cfg.GenerationModel).
		Str("reflection_model", cfg.ReflectionModelOrDefault()).
		Str("cache_backend", cfg.CacheBackend).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("data_masking", cfg.EnableDataMasking).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("pii_detection", cfg.EnablePIIDetection).
		Msg("service configuration")

	if registry.Len() == 0 {
		log.Warn().Msg("WARNING: no data sources configured - /api/v1/query and /api/v1/ask will fail")
	}
	if cfg.OpenAIAPIKey == "" && cfg.AnthropicAPIKey == "" && cfg.GeminiAPIKey == "" && cfg.VertexProjectID == "" {
		log.Warn().Msg("WARNING: no model providers configured - /api/v1/ask will fail")
	}
	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("WARNING: auth enabled but no API keys configured - all API requests will be rejected")
	}

	// ─── Handlers ────────────────────────────────────────────────────────────────
	analyzer := service.NewIntentAnalyzer(registry)
	healthH := handler.NewHealthHandler(registry)
	sourcesH := handler.NewSourcesHandler(registry, schemas)
	queryH := handler.NewQueryHandler(registry, guards)
	askH := handler.NewAskHandler(registry, analyzer, schemas, pipeline, guards)

	// ─── Router ──────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(observability.MetricsMiddleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Auth + rate limiting for API routes
	apiMiddleware := []func(http.Handler) http.Handler{
		middleware.RateLimit(cfg.RateLimitPerMinute),
	}
	if cfg.EnableAuth && len(cfg.APIKeys) > 0 {
		apiMiddleware = append(apiMiddleware, middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
	}

	r.Group(func(r chi.Router) {
		for _, m := range apiMiddleware {
			r.Use(m)
		}

		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Get("/sources", sourcesH.List)
			r.Get("/sources/{source}/schema", sourcesH.Schema)
			r.Post("/query", queryH.Execute)
			r.Post("/ask", askH.Ask)
		})
	})

	return r, registry, nil
}
