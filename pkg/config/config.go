package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment reads happen in this package only.
type Config struct {
	Env string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data provider
	Provider ProviderConfig

	// Market session
	Market MarketConfig

	// Universe construction
	Universe UniverseConfig

	// Analytics
	RiskFreeRate float64 // annualized; GreeksEngine clamps to [0.001, 0.20]

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds market-data provider API configuration
type ProviderConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	FetchWorkers int // bounded fan-out for batch ingestion
	RateLimit    int // requests per second against the provider
}

// MarketConfig holds exchange session parameters
type MarketConfig struct {
	Timezone      string // exchange-local timezone
	OpenHour      int    // nominal open, exchange time
	OpenMinute    int
	CloseHour     int // nominal close, exchange time
	CloseMinute   int
	LockOffset    time.Duration // past nominal close; absorbs late prints
	QuoteCacheTTL time.Duration // age-based retention for the quote cache
}

// UniverseConfig holds universe expansion thresholds
type UniverseConfig struct {
	TargetSize   int
	MinAvgVolume int64   // 20-day average share volume
	MinMarketCap int64   // USD
	MinPrice     float64 // last close price band
	MaxPrice     float64
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Provider: ProviderConfig{
			BaseURL:      getEnv("PROVIDER_BASE_URL", "https://api.tradier.com/v1"),
			APIKey:       getEnv("PROVIDER_API_KEY", ""),
			Timeout:      getEnvAsDuration("PROVIDER_TIMEOUT", "20s"),
			FetchWorkers: getEnvAsInt("PROVIDER_FETCH_WORKERS", 8),
			RateLimit:    getEnvAsInt("PROVIDER_RATE_LIMIT", 10),
		},

		Market: MarketConfig{
			Timezone:      getEnv("MARKET_TIMEZONE", "America/New_York"),
			OpenHour:      getEnvAsInt("MARKET_OPEN_HOUR", 9),
			OpenMinute:    getEnvAsInt("MARKET_OPEN_MINUTE", 30),
			CloseHour:     getEnvAsInt("MARKET_CLOSE_HOUR", 16),
			CloseMinute:   getEnvAsInt("MARKET_CLOSE_MINUTE", 0),
			LockOffset:    getEnvAsDuration("MARKET_LOCK_OFFSET", "5m"),
			QuoteCacheTTL: getEnvAsDuration("QUOTE_CACHE_TTL", "72h"),
		},

		Universe: UniverseConfig{
			TargetSize:   getEnvAsInt("UNIVERSE_TARGET_SIZE", 1500),
			MinAvgVolume: getEnvAsInt64("UNIVERSE_MIN_AVG_VOLUME", 1_000_000),
			MinMarketCap: getEnvAsInt64("UNIVERSE_MIN_MARKET_CAP", 2_000_000_000),
			MinPrice:     getEnvAsFloat("UNIVERSE_MIN_PRICE", 5.0),
			MaxPrice:     getEnvAsFloat("UNIVERSE_MAX_PRICE", 1000.0),
		},

		RiskFreeRate: getEnvAsFloat("RISK_FREE_RATE", 0.045),

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
// Failures here are fatal at startup by design: a bad risk-free rate or a
// missing database URL must never make it into a running scheduler.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.RiskFreeRate < 0 || c.RiskFreeRate > 1 {
		return fmt.Errorf("RISK_FREE_RATE %.4f is outside [0, 1]", c.RiskFreeRate)
	}

	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("MARKET_TIMEZONE %q is invalid: %w", c.Market.Timezone, err)
	}

	if c.Provider.FetchWorkers < 1 {
		return fmt.Errorf("PROVIDER_FETCH_WORKERS must be >= 1")
	}

	if c.Universe.TargetSize < 1 {
		return fmt.Errorf("UNIVERSE_TARGET_SIZE must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
