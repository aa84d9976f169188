package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stock-signal-engine/config"
	"stock-signal-engine/internal/cache"
	"stock-signal-engine/internal/ledger"
	"stock-signal-engine/internal/logging"
	"stock-signal-engine/internal/market"
	"stock-signal-engine/internal/screener"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ledger store: Postgres when configured, in-memory otherwise
	var store ledger.Store
	if cfg.DatabaseConfig.Enabled {
		pg, err := ledger.NewPostgresStore(ctx, ledger.PostgresConfig{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Ledger database unavailable")
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Ledger migration failed")
		}
		store = pg
		logger.Info().Str("host", cfg.DatabaseConfig.Host).Msg("Ledger connected")
	} else {
		store = ledger.NewMemoryStore()
		logger.Warn().Msg("No database configured, signal ledger is in-memory only")
	}

	var c cache.Cache
	if cfg.RedisConfig.Enabled {
		c = cache.NewRedisCache(cache.RedisConfig{
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		}, logging.Component(logger, "cache"))
	} else {
		c = cache.NewMemoryCache()
	}
	defer c.Close()

	if len(cfg.ScreenerConfig.Symbols) == 0 {
		logger.Fatal().Msg("No symbols configured, set SCREENER_SYMBOLS")
	}

	s := screener.New(market.NewYahooClient(), store, c, cfg, logging.Component(logger, "screener"))

	result, err := s.Scan(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Scan aborted")
		os.Exit(1)
	}

	for _, res := range result.Results {
		event := logger.Info()
		if res.Rejected {
			event = logger.Debug()
		}
		event.
			Str("symbol", res.Symbol).
			Str("direction", res.Direction).
			Float64("confidence", res.Confidence).
			Int("alignment", res.AlignmentScore).
			Str("regime", res.Regime).
			Bool("should_trade", res.Decision.ShouldTrade).
			Str("category", res.Calibrated.Category).
			Str("reason", firstNonEmpty(res.RejectReason, res.Decision.Reason)).
			Msg("Symbol analyzed")
	}

	tradeable := result.TradeableResults()
	logger.Info().
		Str("run_id", result.RunID).
		Int("tradeable", len(tradeable)).
		Int("analyzed", len(result.Results)).
		Int("skipped", len(result.Skipped)).
		Msg("Scan complete")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
