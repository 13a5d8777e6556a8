// file: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime configuration for the rewards engine.
type Config struct {
	App      AppConfig      `json:"app"`
	Database DatabaseConfig `json:"database"`
	Cache    CacheConfig    `json:"cache"`
	Engine   EngineConfig   `json:"engine"`
	Worker   WorkerConfig   `json:"worker"`
	Logging  LoggingConfig  `json:"logging"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Debug       bool   `json:"debug"`
}

// DatabaseConfig holds connection pool and migration settings.
type DatabaseConfig struct {
	URL             string        `json:"url"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	MigrationsPath  string        `json:"migrations_path"`
}

// CacheConfig selects and tunes the cache provider.
type CacheConfig struct {
	Provider      string        `json:"provider"` // "memory", "redis"
	TTL           time.Duration `json:"ttl"`
	RedisURL      string        `json:"redis_url"`
	RedisPassword string        `json:"redis_password"`
	RedisDB       int           `json:"redis_db"`
}

// EngineConfig tunes the rewards engine itself.
type EngineConfig struct {
	// SweepInterval is how often the worker re-checks recently active users.
	SweepInterval time.Duration `json:"sweep_interval"`

	// SweepBatchSize bounds how many users one sweep cycle evaluates.
	SweepBatchSize int `json:"sweep_batch_size"`

	// ActivityWindow bounds how far back "recently active" reaches.
	ActivityWindow time.Duration `json:"activity_window"`
}

// WorkerConfig holds the sweep worker's operational endpoints.
type WorkerConfig struct {
	ListenAddr      string        `json:"listen_addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, console
}

// Load reads configuration from the environment, with .env file support
// outside production.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	}

	config := &Config{
		App:      loadAppConfig(env),
		Database: loadDatabaseConfig(env),
		Cache:    loadCacheConfig(env),
		Engine:   loadEngineConfig(),
		Worker:   loadWorkerConfig(),
		Logging:  loadLoggingConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadAppConfig(env string) AppConfig {
	return AppConfig{
		Name:        getEnv("APP_NAME", "alphahub-rewards"),
		Environment: env,
		Debug:       getBoolEnv("DEBUG", env == "development"),
	}
}

func loadDatabaseConfig(env string) DatabaseConfig {
	config := DatabaseConfig{
		URL:             getEnv("DATABASE_URL", ""),
		MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "migrations"),
	}

	if env == "production" {
		config.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", 50)
		config.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", 10)
	}

	return config
}

func loadCacheConfig(env string) CacheConfig {
	provider := getEnv("CACHE_PROVIDER", "memory")
	if env == "production" && getEnv("REDIS_URL", "") != "" {
		provider = getEnv("CACHE_PROVIDER", "redis")
	}

	return CacheConfig{
		Provider:      provider,
		TTL:           getDurationEnv("CACHE_TTL", 15*time.Minute),
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		SweepInterval:  getDurationEnv("SWEEP_INTERVAL", 10*time.Minute),
		SweepBatchSize: getIntEnv("SWEEP_BATCH_SIZE", 200),
		ActivityWindow: getDurationEnv("ACTIVITY_WINDOW", 24*time.Hour),
	}
}

func loadWorkerConfig() WorkerConfig {
	return WorkerConfig{
		ListenAddr:      getEnv("WORKER_LISTEN_ADDR", ":9100"),
		ShutdownTimeout: getDurationEnv("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	format := "console"
	if env == "production" {
		format = "json"
	}

	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", defaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", format),
	}
}

func defaultLogLevel(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.Cache.Provider != "memory" && c.Cache.Provider != "redis" {
		return fmt.Errorf("CACHE_PROVIDER must be \"memory\" or \"redis\", got %q", c.Cache.Provider)
	}
	if c.Cache.Provider == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when CACHE_PROVIDER is \"redis\"")
	}
	if c.Engine.SweepBatchSize < 1 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be at least 1")
	}
	return nil
}

// IsProduction reports whether the engine runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ===============================
// ENVIRONMENT HELPERS
// ===============================

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
