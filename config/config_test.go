package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.EngineConfig.HistoryRange != "1y" {
		t.Errorf("Expected default history range 1y, got %s", cfg.EngineConfig.HistoryRange)
	}
	if cfg.ScreenerConfig.BatchSize != 5 {
		t.Errorf("Expected default batch size 5, got %d", cfg.ScreenerConfig.BatchSize)
	}
	if cfg.DatabaseConfig.Port != 5432 {
		t.Errorf("Expected default Postgres port, got %d", cfg.DatabaseConfig.Port)
	}
	if cfg.LoggingConfig.Level != "INFO" {
		t.Errorf("Expected default log level INFO, got %s", cfg.LoggingConfig.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCREENER_SYMBOLS", "aapl, msft,NVDA")
	t.Setenv("SCREENER_BATCH_SIZE", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"AAPL", "MSFT", "NVDA"}
	if len(cfg.ScreenerConfig.Symbols) != len(want) {
		t.Fatalf("Expected %d symbols, got %v", len(want), cfg.ScreenerConfig.Symbols)
	}
	for i, sym := range want {
		if cfg.ScreenerConfig.Symbols[i] != sym {
			t.Errorf("Symbol %d: expected %s, got %s", i, sym, cfg.ScreenerConfig.Symbols[i])
		}
	}
	if cfg.ScreenerConfig.BatchSize != 3 {
		t.Errorf("Expected batch size 3, got %d", cfg.ScreenerConfig.BatchSize)
	}
	if cfg.LoggingConfig.Level != "DEBUG" {
		t.Errorf("Expected DEBUG level, got %s", cfg.LoggingConfig.Level)
	}
}

func TestValidateRejectsEnabledWithoutEndpoint(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.DatabaseConfig.Enabled = true
	cfg.DatabaseConfig.Host = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for enabled database without host")
	}
}

func TestValidateRejectsZeroBatch(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for zero batch size")
	}
}
