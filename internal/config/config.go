package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AI providers understood by the grading pipeline.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Endpoint cache backends for the model fallback client.
const (
	EndpointCacheMemory = "memory"
	EndpointCacheRedis  = "redis"
	EndpointCacheNone   = "none"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string
	CORSOrigins []string

	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	AIProvider         string
	AIOpenAIModels     []string
	AIAttemptTimeout   time.Duration
	AIEndpointCache    string
	AIEndpointCacheTTL time.Duration

	GradingPersona      string
	GradingLockTTL      time.Duration
	GradingRatePerMin   int
	LeaderboardCacheTTL time.Duration
	LeaderboardExcluded []string
	EventsSubjectPrefix string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// ProviderAPIKey returns the credential for the configured AI provider.
func (c Config) ProviderAPIKey() string {
	if c.AIProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// Load reads configuration values from environment variables and optional .env file.
// A missing AI credential is not a load error; grading requests report it instead.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DPOTD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "DPOTD API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.openai.models", "gpt-4o-mini")
	v.SetDefault("ai.attempt_timeout", "20s")
	v.SetDefault("ai.endpoint_cache", EndpointCacheMemory)
	v.SetDefault("ai.endpoint_cache_ttl", "1h")
	v.SetDefault("grading.persona", "formal")
	v.SetDefault("grading.lock_ttl", "2m")
	v.SetDefault("grading.rate_limit_per_minute", 30)
	v.SetDefault("leaderboard.cache_ttl", "1m")
	v.SetDefault("events.subject_prefix", "dpotd")

	if err := v.BindEnv("gemini.api_key", "DPOTD_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind gemini key: %w", err)
	}

	durations := map[string]time.Duration{}
	for _, key := range []string{"ai.attempt_timeout", "ai.endpoint_cache_ttl", "grading.lock_ttl", "leaderboard.cache_ttl"} {
		parsed, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		JWTSecret:   v.GetString("jwt.secret"),
		CORSOrigins: splitList(v.GetString("cors.origins")),

		GeminiAPIKey:  strings.TrimSpace(v.GetString("gemini.api_key")),
		OpenAIAPIKey:  strings.TrimSpace(v.GetString("openai.api_key")),
		OpenAIBaseURL: v.GetString("openai.base_url"),

		AIProvider:         strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		AIOpenAIModels:     splitList(v.GetString("ai.openai.models")),
		AIAttemptTimeout:   durations["ai.attempt_timeout"],
		AIEndpointCache:    strings.ToLower(strings.TrimSpace(v.GetString("ai.endpoint_cache"))),
		AIEndpointCacheTTL: durations["ai.endpoint_cache_ttl"],

		GradingPersona:      strings.ToLower(strings.TrimSpace(v.GetString("grading.persona"))),
		GradingLockTTL:      durations["grading.lock_ttl"],
		GradingRatePerMin:   v.GetInt("grading.rate_limit_per_minute"),
		LeaderboardCacheTTL: durations["leaderboard.cache_ttl"],
		LeaderboardExcluded: splitList(strings.ToLower(v.GetString("leaderboard.excluded_emails"))),
		EventsSubjectPrefix: v.GetString("events.subject_prefix"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.AIProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}
	if cfg.AIProvider == ProviderOpenAI && len(cfg.AIOpenAIModels) == 0 {
		return Config{}, fmt.Errorf("ai.openai.models must name at least one model")
	}

	switch cfg.AIEndpointCache {
	case EndpointCacheMemory, EndpointCacheRedis, EndpointCacheNone:
	default:
		return Config{}, fmt.Errorf("unsupported endpoint cache %q", cfg.AIEndpointCache)
	}

	if cfg.GradingRatePerMin <= 0 {
		cfg.GradingRatePerMin = 30
	}

	return cfg, nil
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
