package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
	APIPrefix   string `json:"api_prefix"`
	LogLevel    string `json:"log_level"`

	// CORS
	CORSOrigins []string `json:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	// Models
	GenerationModel      string  `json:"generation_model"`
	ReflectionModel      string  `json:"reflection_model"`
	GenTemperature       float64 `json:"gen_temperature"`
	MaxCompletionTokens  int     `json:"max_completion_tokens"`
	MaxImprovementCycles int     `json:"max_improvement_cycles"`
	AskTimeout           int     `json:"ask_timeout"`

	// Providers
	OpenAIAPIKey     string `json:"openai_api_key"`
	OpenAIBaseURL    string `json:"openai_base_url"` // override for Azure / custom proxy
	AnthropicAPIKey  string `json:"anthropic_api_key"`
	AnthropicBaseURL string `json:"anthropic_base_url"`
	GeminiAPIKey     string `json:"gemini_api_key"`
	VertexProjectID  string `json:"vertex_project_id"`
	VertexLocation   string `json:"vertex_location"`

	// Retry
	MaxRetries       int `json:"max_retries"`
	RetryBaseDelayMs int `json:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `json:"retry_max_delay_ms"`

	// Response cache
	CacheBackend    string `json:"cache_backend"` // "memory" | "redis"
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	RedisURL        string `json:"redis_url"`

	// Schema cache
	SchemaCacheTTLSeconds int `json:"schema_cache_ttl_seconds"`

	// Execution
	DefaultRowLimit    int  `json:"default_row_limit"`
	AllowUnsafeQueries bool `json:"allow_unsafe_queries"`

	// Postgres
	PostgresEnabled bool   `json:"postgres_enabled"`
	PostgresDSN     string `json:"postgres_dsn"`
	PostgresSchema  string `json:"postgres_schema"`

	// BigQuery
	BigQueryEnabled              bool   `json:"bigquery_enabled"`
	GCPProjectID                 string `json:"gcp_project_id"`
	GoogleApplicationCredentials string `json:"google_application_credentials"`
	BigQueryDataset              string `json:"bigquery_dataset"`
	BigQueryLocation             string `json:"bigquery_location"`
	MaxQueryBytesProcessed       int64  `json:"max_query_bytes_processed"`

	// Elasticsearch
	ElasticsearchEnabled     bool     `json:"elasticsearch_enabled"`
	ElasticsearchHost        string   `json:"elasticsearch_host"`
	ElasticsearchPort        int      `json:"elasticsearch_port"`
	ElasticsearchScheme      string   `json:"elasticsearch_scheme"`
	ElasticsearchUser        string   `json:"elasticsearch_user"`
	ElasticsearchPassword    string   `json:"elasticsearch_password"`
	ElasticsearchVerifyCerts bool     `json:"elasticsearch_verify_certs"`
	ElasticsearchMaxRetries  int      `json:"elasticsearch_max_retries"`
	ElasticsearchTimeout     int      `json:"elasticsearch_timeout"`
	ESAllowedPatterns        []string `json:"es_allowed_patterns"`

	// Security
	EnableQueryCostTracking bool     `json:"enable_query_cost_tracking"`
	EnableDataMasking       bool     `json:"enable_data_masking"`
	EnablePIIDetection      bool     `json:"enable_pii_detection"`
	SensitiveColumns        []string `json:"sensitive_columns"`
	PIIKeywords             []string `json:"pii_keywords"`
	EnableAuditLogging      bool     `json:"enable_audit_logging"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:                     DefaultHost,
		Port:                     DefaultPort,
		Environment:              DefaultEnvironment,
		APIPrefix:                DefaultAPIPrefix,
		LogLevel:                 DefaultLogLevel,
		CORSOrigins:              DefaultCORSOrigins,
		APIKeyHeader:             "X-API-Key",
		EnableAuth:               true,
		RateLimitPerMinute:       DefaultRateLimitPerMinute,
		GenerationModel:          DefaultGenerationModel,
		GenTemperature:           DefaultGenTemperature,
		MaxCompletionTokens:      DefaultMaxCompletionTokens,
		MaxImprovementCycles:     DefaultMaxImprovementCycles,
		AskTimeout:               DefaultAskTimeout,
		MaxRetries:               DefaultMaxRetries,
		RetryBaseDelayMs:         DefaultRetryBaseDelayMs,
		RetryMaxDelayMs:          DefaultRetryMaxDelayMs,
		CacheBackend:             DefaultCacheBackend,
		CacheTTLSeconds:          DefaultCacheTTLSeconds,
		SchemaCacheTTLSeconds:    DefaultSchemaCacheTTLSeconds,
		DefaultRowLimit:          DefaultRowLimit,
		PostgresSchema:           DefaultPostgresSchema,
		BigQueryLocation:         DefaultBigQueryLocation,
		MaxQueryBytesProcessed:   DefaultMaxQueryBytesProcessed,
		ElasticsearchPort:        DefaultElasticsearchPort,
		ElasticsearchScheme:      DefaultElasticsearchScheme,
		ElasticsearchVerifyCerts: true,
		ElasticsearchMaxRetries:  DefaultElasticsearchMaxRetries,
		ElasticsearchTimeout:     DefaultElasticsearchTimeout,
		EnableQueryCostTracking:  true,
		EnableDataMasking:        true,
		EnablePIIDetection:       true,
		SensitiveColumns:         DefaultSensitiveColumns,
		PIIKeywords:              DefaultPIIKeywords,
		EnableAuditLogging:       true,
	}

	// Load from JSON config file if specified
	if path := getEnv("QUERYPILOT_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, err
		}
	}

	// Environment overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// ReflectionModelOrDefault returns the reflection model, falling back to the
// generation model when unset.
func (c *Config) ReflectionModelOrDefault() string {
	if c.ReflectionModel != "" {
		return c.ReflectionModel
	}
	return c.GenerationModel
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("QUERYPILOT_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("QUERYPILOT_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("QUERYPILOT_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("QUERYPILOT_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("QUERYPILOT_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
	if v := getEnv("QUERYPILOT_GENERATION_MODEL", ""); v != "" {
		cfg.GenerationModel = v
	}
	if v := getEnv("QUERYPILOT_REFLECTION_MODEL", ""); v != "" {
		cfg.ReflectionModel = v
	}
	if v := getEnv("QUERYPILOT_MAX_IMPROVEMENT_CYCLES", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxImprovementCycles = n
		}
	}
	if v := getEnv("QUERYPILOT_MAX_RETRIES", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := getEnv("QUERYPILOT_CACHE_BACKEND", ""); v != "" {
		cfg.CacheBackend = v
	}
	if v := getEnv("QUERYPILOT_CACHE_TTL_SECONDS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheTTLSeconds = n
		}
	}
	if v := getEnv("QUERYPILOT_REDIS_URL", ""); v != "" {
		cfg.RedisURL = v
	}
	if v := getEnv("QUERYPILOT_ALLOW_UNSAFE", ""); v != "" {
		cfg.AllowUnsafeQueries = v == "true" || v == "1"
	}
	if v := getEnv("OPENAI_API_KEY", ""); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := getEnv("OPENAI_BASE_URL", ""); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := getEnv("ANTHROPIC_BASE_URL", ""); v != "" {
		cfg.AnthropicBaseURL = v
	}
	if v := getEnv("GEMINI_API_KEY", ""); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := getEnv("VERTEX_PROJECT_ID", ""); v != "" {
		cfg.VertexProjectID = v
	}
	if v := getEnv("VERTEX_LOCATION", ""); v != "" {
		cfg.VertexLocation = v
	}
	if v := getEnv("POSTGRES_DSN", ""); v != "" {
		cfg.PostgresDSN = v
		cfg.PostgresEnabled = true
	}
	if v := getEnv("GCP_PROJECT_ID", ""); v != "" {
		cfg.GCPProjectID = v
	}
	if v := getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""); v != "" {
		cfg.GoogleApplicationCredentials = v
	}
	if v := getEnv("BIGQUERY_ENABLED", ""); v != "" {
		cfg.BigQueryEnabled = v == "true" || v == "1"
	}
	if v := getEnv("BIGQUERY_DATASET", ""); v != "" {
		cfg.BigQueryDataset = v
	}
	if v := getEnv("ELASTICSEARCH_ENABLED", ""); v != "" {
		cfg.ElasticsearchEnabled = v == "true" || v == "1"
	}
	if v := getEnv("ELASTICSEARCH_HOST", ""); v != "" {
		cfg.ElasticsearchHost = v
	}
	if v := getEnv("ELASTICSEARCH_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ElasticsearchPort = p
		}
	}
	if v := getEnv("ELASTICSEARCH_SCHEME", ""); v != "" {
		cfg.ElasticsearchScheme = v
	}
	if v := getEnv("ELASTICSEARCH_USER", ""); v != "" {
		cfg.ElasticsearchUser = v
	}
	if v := getEnv("ELASTICSEARCH_PASSWORD", ""); v != "" {
		cfg.ElasticsearchPassword = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = r
		}
	}
	if v := getEnv("ENABLE_AUTH", ""); v != "" {
		cfg.EnableAuth = v == "true" || v == "1"
	}
	if v := getEnv("MAX_QUERY_BYTES_PROCESSED", ""); v != "" {
		if b, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxQueryBytesProcessed = b
		}
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
