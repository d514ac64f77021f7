package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8080
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultGenerationModel      = "gpt-4o-mini"
	DefaultGenTemperature       = 0.1
	DefaultMaxCompletionTokens  = 2048
	DefaultMaxImprovementCycles = 1
	DefaultAskTimeout           = 300 // seconds

	DefaultMaxRetries       = 3
	DefaultRetryBaseDelayMs = 1000
	DefaultRetryMaxDelayMs  = 10000

	DefaultCacheBackend          = "memory"
	DefaultCacheTTLSeconds       = 3600
	DefaultSchemaCacheTTLSeconds = 300

	DefaultRowLimit = 100

	DefaultPostgresSchema = "public"

	DefaultBigQueryLocation = "US"

	DefaultMaxQueryBytesProcessed = 10_000_000_000 // 10GB

	DefaultElasticsearchPort       = 9200
	DefaultElasticsearchScheme     = "http"
	DefaultElasticsearchMaxRetries = 3
	DefaultElasticsearchTimeout    = 30
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

var DefaultSensitiveColumns = []string{
	"email", "phone", "ssn", "social_security_number",
	"credit_card", "password", "secret", "token",
	"api_key", "access_key", "private_key",
}

var DefaultPIIKeywords = []string{
	"password", "ssn", "social security", "credit card",
	"bank account", "pin", "secret", "private key",
	"access token", "api key", "personal data",
}
