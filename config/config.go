// Package config loads engine configuration from an optional config.json,
// with environment variables taking precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	EngineConfig   EngineConfig   `json:"engine"`
	ScreenerConfig ScreenerConfig `json:"screener"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	LoggingConfig  LoggingConfig  `json:"logging"`
}

// EngineConfig holds the analysis knobs shared by every scan
type EngineConfig struct {
	HistoryRange  string `json:"history_range"`   // e.g. "1y"
	Interval      string `json:"interval"`        // e.g. "1d"
	WeeklyRange   string `json:"weekly_range"`    // history depth for the weekly timeframe
	MonthlyRange  string `json:"monthly_range"`   // history depth for the monthly timeframe
	CacheHistory  bool   `json:"cache_history"`   // cache fetched bars between scans
	ResolveOnScan bool   `json:"resolve_on_scan"` // settle pending signals before analysis
}

// ScreenerConfig controls the batch scan loop
type ScreenerConfig struct {
	Symbols    []string `json:"symbols"`
	BatchSize  int      `json:"batch_size"`  // symbols analyzed concurrently
	BatchPause int      `json:"batch_pause"` // seconds between batches
}

// BatchPauseDuration returns the pause between batches
func (c ScreenerConfig) BatchPauseDuration() time.Duration {
	return time.Duration(c.BatchPause) * time.Second
}

// DatabaseConfig holds Postgres settings for the signal ledger
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

// Load reads config.json if present, then applies environment overrides
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	if c.ScreenerConfig.BatchSize <= 0 {
		return fmt.Errorf("screener batch_size must be positive, got %d", c.ScreenerConfig.BatchSize)
	}
	if c.DatabaseConfig.Enabled && c.DatabaseConfig.Host == "" {
		return fmt.Errorf("database enabled but no host configured")
	}
	if c.RedisConfig.Enabled && c.RedisConfig.Address == "" {
		return fmt.Errorf("redis enabled but no address configured")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// Engine
	cfg.EngineConfig.HistoryRange = getEnvOrDefault("ENGINE_HISTORY_RANGE", cfg.EngineConfig.HistoryRange)
	cfg.EngineConfig.Interval = getEnvOrDefault("ENGINE_INTERVAL", cfg.EngineConfig.Interval)
	cfg.EngineConfig.WeeklyRange = getEnvOrDefault("ENGINE_WEEKLY_RANGE", cfg.EngineConfig.WeeklyRange)
	cfg.EngineConfig.MonthlyRange = getEnvOrDefault("ENGINE_MONTHLY_RANGE", cfg.EngineConfig.MonthlyRange)
	if v := os.Getenv("ENGINE_CACHE_HISTORY"); v != "" {
		cfg.EngineConfig.CacheHistory = v == "true"
	}
	if v := os.Getenv("ENGINE_RESOLVE_ON_SCAN"); v != "" {
		cfg.EngineConfig.ResolveOnScan = v == "true"
	}

	// Screener
	if v := os.Getenv("SCREENER_SYMBOLS"); v != "" {
		cfg.ScreenerConfig.Symbols = splitSymbols(v)
	}
	cfg.ScreenerConfig.BatchSize = getEnvIntOrDefault("SCREENER_BATCH_SIZE", cfg.ScreenerConfig.BatchSize)
	cfg.ScreenerConfig.BatchPause = getEnvIntOrDefault("SCREENER_BATCH_PAUSE", cfg.ScreenerConfig.BatchPause)

	// Database
	if v := os.Getenv("DB_ENABLED"); v != "" {
		cfg.DatabaseConfig.Enabled = v == "true"
	}
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", cfg.RedisConfig.PoolSize)

	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.LoggingConfig.JSONFormat = v == "true"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.EngineConfig.HistoryRange == "" {
		cfg.EngineConfig.HistoryRange = "1y"
	}
	if cfg.EngineConfig.Interval == "" {
		cfg.EngineConfig.Interval = "1d"
	}
	if cfg.EngineConfig.WeeklyRange == "" {
		cfg.EngineConfig.WeeklyRange = "2y"
	}
	if cfg.EngineConfig.MonthlyRange == "" {
		cfg.EngineConfig.MonthlyRange = "5y"
	}
	if cfg.ScreenerConfig.BatchSize == 0 {
		cfg.ScreenerConfig.BatchSize = 5
	}
	if cfg.ScreenerConfig.BatchPause == 0 {
		cfg.ScreenerConfig.BatchPause = 2
	}
	if cfg.DatabaseConfig.Port == 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize == 0 {
		cfg.RedisConfig.PoolSize = 10
	}
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "INFO"
	}
	if cfg.LoggingConfig.Output == "" {
		cfg.LoggingConfig.Output = "stdout"
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, strings.ToUpper(trimmed))
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
