// Package screener runs the full scoring pipeline over a symbol universe in
// small concurrent batches, pausing between batches so upstream data
// providers are not hammered.
package screener

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stock-signal-engine/config"
	"stock-signal-engine/internal/alignment"
	"stock-signal-engine/internal/cache"
	"stock-signal-engine/internal/calibration"
	"stock-signal-engine/internal/clarity"
	"stock-signal-engine/internal/conditions"
	"stock-signal-engine/internal/ledger"
	"stock-signal-engine/internal/market"
)

// Screener wires the pipeline stages together and owns the cross-scan state
// (prior signal directions for age tracking)
type Screener struct {
	history    market.HistoryProvider
	store      ledger.Store
	cache      cache.Cache
	scorer     *clarity.Scorer
	gates      []clarity.QualityGate
	checker    *alignment.Checker
	probs      *conditions.Engine
	calibrator *calibration.Calibrator
	resolver   *ledger.Resolver
	cfg        config.ScreenerConfig
	engineCfg  config.EngineConfig
	logger     zerolog.Logger

	mu    sync.Mutex
	prior map[string]clarity.PriorSignal
}

// New builds a screener over the given providers. The cache may be a
// MemoryCache for single-node runs.
func New(history market.HistoryProvider, store ledger.Store, c cache.Cache, cfg *config.Config, logger zerolog.Logger) *Screener {
	return &Screener{
		history:    history,
		store:      store,
		cache:      c,
		scorer:     clarity.NewScorer(),
		gates:      clarity.DefaultGates(),
		checker:    alignment.NewChecker(),
		probs:      conditions.NewEngine(store),
		calibrator: calibration.NewCalibrator(store, logger),
		resolver:   ledger.NewResolver(store, logger),
		cfg:        cfg.ScreenerConfig,
		engineCfg:  cfg.EngineConfig,
		logger:     logger,
		prior:      make(map[string]clarity.PriorSignal),
	}
}

// Scan runs the pipeline over every configured symbol in batches. A cancelled
// context returns the partial result alongside the context error.
func (s *Screener) Scan(ctx context.Context) (*ScanResult, error) {
	result := &ScanResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	logger := s.logger.With().Str("run_id", result.RunID).Logger()
	logger.Info().Int("symbols", len(s.cfg.Symbols)).Int("batch_size", s.cfg.BatchSize).Msg("Scan started")

	// One calibration report serves the whole scan
	report, err := s.calibrator.Build(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Calibration report unavailable, adjustments disabled")
		report = nil
	}

	var mu sync.Mutex
	symbols := s.cfg.Symbols

	for start := 0; start < len(symbols); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(result.StartedAt)
			return result, err
		}

		end := start + s.cfg.BatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		var wg sync.WaitGroup
		for _, symbol := range symbols[start:end] {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()

				res, err := s.analyzeSymbol(ctx, symbol, report)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					logger.Warn().Err(err).Str("symbol", symbol).Msg("Symbol skipped")
					result.Skipped = append(result.Skipped, SkippedSymbol{Symbol: symbol, Reason: err.Error()})
					return
				}
				result.Results = append(result.Results, *res)
			}(symbol)
		}
		wg.Wait()

		// Pause between batches, not after the last one
		if end < len(symbols) {
			select {
			case <-time.After(s.cfg.BatchPauseDuration()):
			case <-ctx.Done():
				result.Duration = time.Since(result.StartedAt)
				return result, ctx.Err()
			}
		}
	}

	// Highest conviction first
	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Confidence > result.Results[j].Confidence
	})

	result.Duration = time.Since(result.StartedAt)
	logger.Info().
		Int("analyzed", len(result.Results)).
		Int("skipped", len(result.Skipped)).
		Dur("duration", result.Duration).
		Msg("Scan finished")
	return result, nil
}

// priorSignal returns the previous scan's read for a symbol, nil on first
// sight
func (s *Screener) priorSignal(symbol string) *clarity.PriorSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.prior[symbol]; ok {
		return &prev
	}
	return nil
}

func (s *Screener) rememberSignal(symbol, direction string, age int) {
	s.mu.Lock()
	s.prior[symbol] = clarity.PriorSignal{Direction: direction, Age: age}
	s.mu.Unlock()
}
