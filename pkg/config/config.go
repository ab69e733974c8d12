package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const jhuTimeSeriesBase = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series"

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port        string
	Env         string // development, staging, production
	CORSOrigins []string

	// Bearer token of POST /admin/refresh.
	// Empty leaves the endpoint open in development and disables it elsewhere.
	AdminToken string

	// Data sources
	Sources SourcesConfig

	// Ingestion / refresh
	Ingest IngestConfig

	// Aggregate cache
	Cache CacheConfig

	// Redis (optional shared cache backend)
	Redis RedisConfig

	// Database (optional snapshot archive)
	Database DatabaseConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// SourcesConfig locates the raw inputs of one ingestion run.
// Values starting with http:// or https:// are fetched, anything else is read from disk.
type SourcesConfig struct {
	ConfirmedURL   string
	DeathsURL      string
	RecoveredURL   string
	CovariatesPath string
	PopulationPath string
	ForecastPath   string

	// Optional YAML country table merged over the built-in registry
	CountryTablePath string
}

// IngestConfig controls the background refresh pipeline
type IngestConfig struct {
	Workers           int
	FetchTimeout      time.Duration
	RefreshTimeout    time.Duration
	MaxRetries        int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RateLimit         float64 // outbound requests per second, 0 disables
	RefreshSchedule   string  // cron expression (with seconds)
	TrackedContinents []string
}

// CacheConfig holds aggregate cache configuration
type CacheConfig struct {
	Backend string // memory, redis
	TTL     time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Number of archived snapshots kept by the prune job
	ArchiveRetention int
}

// ArchiveEnabled reports whether snapshots are archived to Postgres
func (d DatabaseConfig) ArchiveEnabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit .env file; an empty path searches the defaults
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		loadEnvFile()
	}

	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),

		Sources: SourcesConfig{
			ConfirmedURL:   getEnv("SOURCE_CONFIRMED_URL", jhuTimeSeriesBase+"/time_series_covid19_confirmed_global.csv"),
			DeathsURL:      getEnv("SOURCE_DEATHS_URL", jhuTimeSeriesBase+"/time_series_covid19_deaths_global.csv"),
			RecoveredURL:   getEnv("SOURCE_RECOVERED_URL", jhuTimeSeriesBase+"/time_series_covid19_recovered_global.csv"),
			CovariatesPath: getEnv("SOURCE_COVARIATES_PATH", "data/covariates.csv"),
			PopulationPath: getEnv("SOURCE_POPULATION_PATH", "data/population.csv"),
			ForecastPath:   getEnv("SOURCE_FORECAST_PATH", "data/forecast.csv"),

			CountryTablePath: getEnv("COUNTRY_TABLE_PATH", ""),
		},

		Ingest: IngestConfig{
			Workers:           getEnvAsInt("INGEST_WORKERS", 6),
			FetchTimeout:      getEnvAsDuration("INGEST_FETCH_TIMEOUT", "30s"),
			RefreshTimeout:    getEnvAsDuration("INGEST_REFRESH_TIMEOUT", "5m"),
			MaxRetries:        getEnvAsInt("INGEST_MAX_RETRIES", 3),
			RetryInitialDelay: getEnvAsDuration("INGEST_RETRY_INITIAL_DELAY", "1s"),
			RetryMaxDelay:     getEnvAsDuration("INGEST_RETRY_MAX_DELAY", "10s"),
			RateLimit:         getEnvAsFloat("INGEST_RATE_LIMIT", 5),
			RefreshSchedule:   getEnv("INGEST_REFRESH_SCHEDULE", "0 0 */6 * * *"),
			TrackedContinents: getEnvAsList("TRACKED_CONTINENTS", []string{"Africa"}),
		},

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", "memory"),
			TTL:     getEnvAsDuration("CACHE_TTL", "1h"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Database: DatabaseConfig{
			URL:              getEnv("DATABASE_URL", ""),
			MaxConns:         getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
			ArchiveRetention: getEnvAsInt("ARCHIVE_RETENTION", 14),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Sources.ConfirmedURL == "" || c.Sources.DeathsURL == "" || c.Sources.RecoveredURL == "" {
		return fmt.Errorf("SOURCE_CONFIRMED_URL, SOURCE_DEATHS_URL and SOURCE_RECOVERED_URL are required")
	}

	if c.Ingest.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1")
	}

	if c.Ingest.MaxRetries < 0 {
		return fmt.Errorf("INGEST_MAX_RETRIES must not be negative")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: memory, redis")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
