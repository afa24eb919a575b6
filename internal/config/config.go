package config // package config loads application configuration from the environment

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/iliyamo/product-sales-api/internal/utils"
)

// minSecretBytes is the shortest HS256 key accepted at startup.
const minSecretBytes = 32

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable (see Load).
type Config struct {
	Env  string // APP_ENV (dev/test/prod)
	Port string // APP_PORT

	DBUser string // DB_USER
	DBPass string // DB_PASS (empty allowed)
	DBHost string // DB_HOST
	DBPort string // DB_PORT
	DBName string // DB_NAME

	JWTSecret   string // JWT_SECRET, at least 32 bytes
	JWTIssuer   string // JWT_ISSUER
	JWTAudience string // JWT_AUDIENCE

	CORSOrigins    []string // CORS_ORIGINS, comma separated
	MigrateOnStart bool     // MIGRATE_ON_START

	AMQPURL       string // RABBITMQ_URL or AMQP_URL; empty disables events
	SalesConsumer bool   // SALES_CONSUMER_ENABLED
	SalesLogDir   string // SALES_LOG_DIR

	OTLPEndpoint string // OTEL_EXPORTER_OTLP_ENDPOINT; empty disables export
	ServiceName  string // OTEL_SERVICE_NAME

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// Token returns the signing parameters handed to the token issuer.
func (c Config) Token() utils.TokenConfig {
	return utils.TokenConfig{Secret: c.JWTSecret, Issuer: c.JWTIssuer, Audience: c.JWTAudience}
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// Load reads a .env file when present and then the process environment.
// Every missing required variable is reported in the returned error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var r required
	cfg := Config{
		Env:    envStr("APP_ENV", "dev"),
		Port:   envStr("APP_PORT", "8080"),
		DBUser: r.must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: r.must("DB_HOST"),
		DBPort: envStr("DB_PORT", "3306"),
		DBName: r.must("DB_NAME"),

		JWTSecret:   r.must("JWT_SECRET"),
		JWTIssuer:   r.must("JWT_ISSUER"),
		JWTAudience: r.must("JWT_AUDIENCE"),

		CORSOrigins:    envList("CORS_ORIGINS", "http://localhost:5173"),
		MigrateOnStart: envBool("MIGRATE_ON_START", false),

		AMQPURL:       firstEnv("RABBITMQ_URL", "AMQP_URL"),
		SalesConsumer: envBool("SALES_CONSUMER_ENABLED", false),
		SalesLogDir:   envStr("SALES_LOG_DIR", "logs"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "product-sales-api"),

		Redis:     LoadRedisConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
	}
	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < minSecretBytes {
		r.errs = append(r.errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretBytes))
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// required collects missing variables so Load can report all of them.
type required struct{ errs []error }

func (r *required) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
		return ""
	}
	return v
}
