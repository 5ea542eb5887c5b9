package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel      OTelConfig
	Store     StoreConfig
	Sources   SourcesConfig
	PlanCache PlanCacheConfig
	Env       string
	Port      string
	NodeID    int64
}

type StoreConfig struct {
	Driver      string // "postgres", "sqlite" or "file"
	DSN         string
	SourcesFile string
}

type SourcesConfig struct {
	FetchTimeout   time.Duration
	MaxConcurrency int
	UserAgent      string
}

type PlanCacheConfig struct {
	TTL      time.Duration
	RedisURL string
	Key      string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreFile     = "file"
)

const (
	defaultPostgresDSN = "user=postgres password=password dbname=bigscreen host=localhost port=5432 sslmode=disable"
	defaultSQLiteDSN   = "bigscreen.db"
)

// Load reads configuration from the environment. In development a .env file
// in the working directory is loaded first, if present.
func Load() (Config, error) {
	if getEnv("BIGSCREEN_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	fetchTimeout, err := getEnvDuration("SOURCE_FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	maxConcurrency, err := getEnvInt("SOURCE_MAX_CONCURRENCY", 4)
	if err != nil {
		return Config{}, err
	}
	planTTL, err := getEnvDuration("PLAN_CACHE_TTL", 0)
	if err != nil {
		return Config{}, err
	}
	nodeID, err := getEnvInt("SNOWFLAKE_NODE_ID", 1)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:    getEnv("BIGSCREEN_ENV", "development"),
		Port:   getEnv("PORT", "8080"),
		NodeID: int64(nodeID),
		Store: StoreConfig{
			Driver:      getEnv("SOURCE_STORE", StoreSQLite),
			DSN:         getEnv("DB_CONNECTION_STRING", ""),
			SourcesFile: getEnv("SOURCES_FILE", "sources.yaml"),
		},
		Sources: SourcesConfig{
			FetchTimeout:   fetchTimeout,
			MaxConcurrency: maxConcurrency,
			UserAgent:      getEnv("HTTP_USER_AGENT", "bigscreen/1.0"),
		},
		PlanCache: PlanCacheConfig{
			TTL:      planTTL,
			RedisURL: getEnv("REDIS_URL", ""),
			Key:      getEnv("PLAN_CACHE_KEY", "bigscreen:plan"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "bigscreen"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	switch cfg.Store.Driver {
	case StorePostgres:
		if cfg.Store.DSN == "" {
			cfg.Store.DSN = defaultPostgresDSN
		}
	case StoreSQLite:
		if cfg.Store.DSN == "" {
			cfg.Store.DSN = defaultSQLiteDSN
		}
	case StoreFile:
	default:
		return Config{}, fmt.Errorf("SOURCE_STORE must be one of postgres, sqlite or file, got %q", cfg.Store.Driver)
	}

	if cfg.Sources.MaxConcurrency < 1 {
		return Config{}, fmt.Errorf("SOURCE_MAX_CONCURRENCY must be at least 1")
	}
	if cfg.Sources.FetchTimeout <= 0 {
		return Config{}, fmt.Errorf("SOURCE_FETCH_TIMEOUT must be positive")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c PlanCacheConfig) Enabled() bool {
	return c.TTL > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return i, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
