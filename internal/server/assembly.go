package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/cache"
	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/gateway"
	"github.com/querypilot/querypilot/internal/orchestrator"
	"github.com/querypilot/querypilot/internal/reflection"
	"github.com/querypilot/querypilot/internal/retry"
	"github.com/querypilot/querypilot/internal/service"
	"github.com/querypilot/querypilot/internal/sqlgen"
)

// BuildRegistry connects every enabled data source. Sources that fail to
// connect are logged and skipped; callers decide whether an empty registry is
// fatal.
func BuildRegistry(ctx context.Context, cfg *config.Config) *service.Registry {
	registry := service.NewRegistry()

	if cfg.PostgresEnabled && cfg.PostgresDSN != "" {
		pg, err := service.NewPostgresRunner(ctx, service.KindPostgres, cfg.PostgresDSN, cfg.PostgresSchema)
		if err != nil {
			log.Warn().Err(err).Msg("postgres source unavailable")
		} else {
			registry.Register(pg)
		}
	}

	if cfg.BigQueryEnabled && cfg.GCPProjectID != "" {
		bq, err := service.NewBigQueryRunner(
			ctx,
			service.KindBigQuery,
			cfg.GCPProjectID,
			cfg.GoogleApplicationCredentials,
			cfg.BigQueryDataset,
			cfg.BigQueryLocation,
			cfg.MaxQueryBytesProcessed,
		)
		if err != nil {
			log.Warn().Err(err).Msg("bigquery source unavailable")
		} else {
			registry.Register(bq)
		}
	}

	if cfg.ElasticsearchEnabled {
		es, err := service.NewElasticRunner(
			service.KindElasticsearch,
			cfg.ElasticsearchScheme,
			cfg.ElasticsearchHost,
			cfg.ElasticsearchPort,
			cfg.ElasticsearchUser,
			cfg.ElasticsearchPassword,
			cfg.ElasticsearchVerifyCerts,
			cfg.ElasticsearchMaxRetries,
			cfg.ESAllowedPatterns,
		)
		if err != nil {
			log.Warn().Err(err).Msg("elasticsearch source unavailable")
		} else {
			registry.Register(es)
		}
	}

	return registry
}

// BuildPipeline assembles the generation pipeline: model gateway, response
// cache, generator, reflector, and the orchestrator that drives them.
func BuildPipeline(cfg *config.Config) *orchestrator.Pipeline {
	gw := gateway.New(cfg)

	var respCache cache.Cache
	if cfg.CacheBackend == "redis" && cfg.RedisURL != "" {
		client, err := cache.Connect(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, falling back to in-memory response cache")
			respCache = cache.NewMemory(time.Duration(cfg.CacheTTLSeconds) * time.Second)
		} else {
			respCache = cache.NewRedis(client, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		}
	} else {
		respCache = cache.NewMemory(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	}

	generator := sqlgen.New(gw, respCache, sqlgen.Config{
		Model:       cfg.GenerationModel,
		Temperature: cfg.GenTemperature,
		MaxTokens:   cfg.MaxCompletionTokens,
	})
	reflector := reflection.New(gw, cfg.ReflectionModelOrDefault(), cfg.MaxCompletionTokens)

	return orchestrator.New(generator, reflector, orchestrator.Config{
		MaxImprovementCycles: cfg.MaxImprovementCycles,
		Retry: retry.Policy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
			MaxDelay:   time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
			JitterFrac: 0.2,
		},
	})
}
