package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv                    string
	Port                      string
	DatabaseURL               string
	RedisURL                  string
	AutoMigrate               bool
	CORSAllowedOrigins        []string
	ListingCacheTTL           time.Duration
	ProviderCommissionPercent float64
	RateLimit                 string
	BodyLimitBytes            int64
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenFor            time.Duration
	LogFormat                 string
	LogLevel                  string
	MetricsEnabled            bool
	MetricsNamespace          string
	TracingEnabled            bool
	TracingEndpoint           string
	TracingSamplingRatio      float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                    valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                      valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:               k.String("DATABASE_URL"),
		RedisURL:                  k.String("REDIS_URL"),
		AutoMigrate:               parseBool(k.String("AUTO_MIGRATE")),
		CORSAllowedOrigins:        splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ListingCacheTTL:           parseDuration(k.String("LISTING_CACHE_TTL"), "30s"),
		ProviderCommissionPercent: parseFloat(k.String("PROVIDER_COMMISSION_PERCENT"), -25),
		RateLimit:                 valueOrDefault(k.String("RATE_LIMIT"), "120-M"),
		BodyLimitBytes:            parseInt64(k.String("BODY_LIMIT_BYTES"), 64<<10),
		BreakerMinRequests:        int(parseInt64(k.String("LISTING_BREAKER_MIN_REQUESTS"), 5)),
		BreakerFailureRatio:       parseFloat(k.String("LISTING_BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:            parseDuration(k.String("LISTING_BREAKER_OPEN_FOR"), "10s"),
		LogFormat:                 valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:                  valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:            parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace:          valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "market"),
		TracingEnabled:            parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		TracingEndpoint:           strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSamplingRatio:      parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.ProviderCommissionPercent > 0 || cfg.ProviderCommissionPercent < -100 {
		return nil, fmt.Errorf("PROVIDER_COMMISSION_PERCENT must be between -100 and 0, got %v", cfg.ProviderCommissionPercent)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseFloat(value string, fallback float64) float64 {
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return parsed
	}
	return fallback
}

func parseInt64(value string, fallback int64) int64 {
	if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
