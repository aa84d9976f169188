package screener

import (
	"context"
	"errors"
	"fmt"

	"stock-signal-engine/internal/cache"
	"stock-signal-engine/internal/calibration"
	"stock-signal-engine/internal/clarity"
	"stock-signal-engine/internal/conditions"
	"stock-signal-engine/internal/decision"
	"stock-signal-engine/internal/indicators"
	"stock-signal-engine/internal/ledger"
	"stock-signal-engine/internal/market"
)

// minHistoryBars is the fewest daily bars a symbol needs before the
// indicator suite is meaningful
const minHistoryBars = 30

// analyzeSymbol runs one symbol through the whole pipeline: history fetch,
// indicators, clarity scoring, quality gates, multi-timeframe alignment,
// regime bucketing, probability lookup, trade decision, and calibration.
func (s *Screener) analyzeSymbol(ctx context.Context, symbol string, report *calibration.Report) (*SymbolResult, error) {
	daily, err := s.fetchHistory(ctx, symbol, market.Range(s.engineCfg.HistoryRange), market.IntervalDaily)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	if len(daily) < minHistoryBars {
		return nil, fmt.Errorf("insufficient history for %s: %d bars", symbol, len(daily))
	}

	// Settle any pending signals this history can resolve before emitting a
	// new one
	if s.engineCfg.ResolveOnScan {
		if _, err := s.resolver.ResolveSymbol(ctx, symbol, daily); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Pending signal resolution failed")
		}
	}

	set := indicators.Compute(daily)
	cr := s.scorer.Score(symbol, set, s.priorSignal(symbol))
	s.rememberSignal(symbol, cr.Direction, cr.SignalAge)

	res := &SymbolResult{
		Symbol:         symbol,
		Direction:      cr.Direction,
		ClarityScore:   cr.ClarityScore,
		SignalStrength: cr.SignalStrength,
	}

	if cr.ClarityScore < clarity.MinClarityThreshold {
		res.Rejected = true
		res.RejectReason = fmt.Sprintf("clarity %.0f below threshold", cr.ClarityScore)
		return res, nil
	}

	passed, gateAdj, failures := clarity.RunGates(s.gates, cr)
	if !passed {
		res.Rejected = true
		res.RejectReason = fmt.Sprintf("quality gates failed: %v", failures)
		return res, nil
	}
	res.Confidence = clarity.EnhanceConfidence(cr, gateAdj)

	// Slower timeframes are optional; the alignment score renormalizes over
	// whatever is available
	weekly, err := s.fetchHistory(ctx, symbol, market.Range(s.engineCfg.WeeklyRange), market.IntervalWeekly)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Weekly history unavailable")
		weekly = nil
	}
	monthly, err := s.fetchHistory(ctx, symbol, market.Range(s.engineCfg.MonthlyRange), market.IntervalMonthly)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Monthly history unavailable")
		monthly = nil
	}

	align := s.checker.Check(daily, weekly, monthly)
	res.AlignmentScore = align.Score
	res.Tradeable = align.Tradeable

	res.Regime = ClassifyRegime(set)
	ch := conditions.Compute(res.Regime, float64(align.Score), set.ADX.ADX, set.Volume.Ratio)
	res.ConditionHash = ch.Hash

	prob, err := s.lookupProbability(ctx, ch.Hash)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Probability lookup failed")
	} else {
		res.Probability = prob
	}

	analysis := buildAnalysis(symbol, cr, res.Confidence, set)
	res.Decision = decision.ShouldTrade(analysis)
	res.Calibrated = calibration.Apply(report, analysis, res.Decision)

	// Every emitted decision is ledgered, tradeable or not
	res.Signal = s.recordSignal(ctx, symbol, cr, res.Confidence, daily, res.Regime, ch, set, float64(align.Score))

	return res, nil
}

// fetchHistory wraps the provider with the cache when history caching is on
func (s *Screener) fetchHistory(ctx context.Context, symbol string, rng market.Range, interval market.Interval) ([]market.Bar, error) {
	if !s.engineCfg.CacheHistory || s.cache == nil {
		return s.history.FetchHistory(ctx, symbol, rng, interval)
	}

	key := cache.HistoryKey(symbol, string(rng), string(interval))
	var bars []market.Bar
	if err := s.cache.GetJSON(ctx, key, &bars); err == nil {
		return bars, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("History cache read failed")
	}

	bars, err := s.history.FetchHistory(ctx, symbol, rng, interval)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, bars, cache.DefaultHistoryTTL); err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("History cache write failed")
	}
	return bars, nil
}

// lookupProbability consults the cache before hitting the ledger
func (s *Screener) lookupProbability(ctx context.Context, hash string) (*conditions.Probability, error) {
	if s.cache != nil {
		var cached conditions.Probability
		if err := s.cache.GetJSON(ctx, cache.ProbabilityKey(hash), &cached); err == nil {
			return &cached, nil
		}
	}

	prob, err := s.probs.Lookup(ctx, hash)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.ProbabilityKey(hash), prob, cache.DefaultProbabilityTTL); err != nil {
			s.logger.Debug().Err(err).Str("hash", hash).Msg("Probability cache write failed")
		}
	}
	return prob, nil
}

// buildAnalysis converts the scored candidate into the evaluator's payload.
// The dominant side carries the enhanced confidence; price levels come from
// the pivot ladder.
func buildAnalysis(symbol string, cr *clarity.ClarityResult, confidence float64, set *indicators.IndicatorSet) *decision.Analysis {
	entry := set.SR.Pivot
	if entry == 0 {
		entry = set.Bollinger.Middle
	}

	bullPlan := buildPlan(entry, set.SR.R1, set.SR.S1)
	bearPlan := buildPlan(entry, set.SR.S1, set.SR.R1)

	volumeRatio := set.Volume.Ratio
	analysis := &decision.Analysis{
		Symbol:      symbol,
		VolumeRatio: &volumeRatio,
		RSI:         set.RSI.Value,
		MATrend:     set.MA.Trend,
	}
	if cr.Direction == indicators.Bullish {
		analysis.Bullish = &decision.Scenario{Probability: confidence, Plan: bullPlan}
		analysis.Bearish = &decision.Scenario{Probability: 100 - confidence, Plan: bearPlan}
	} else {
		analysis.Bearish = &decision.Scenario{Probability: confidence, Plan: bearPlan}
		analysis.Bullish = &decision.Scenario{Probability: 100 - confidence, Plan: bullPlan}
	}
	return analysis
}

// buildPlan derives a risk/reward from entry, target, and stop. Degenerate
// geometry (stop on the wrong side) yields a zero plan.
func buildPlan(entry, target, stop float64) decision.TradePlan {
	plan := decision.TradePlan{Entry: entry, Target: target, StopLoss: stop}

	reward := target - entry
	risk := entry - stop
	if reward < 0 {
		reward = -reward
		risk = -risk
	}
	if risk > 0 {
		plan.RiskReward = reward / risk
	}
	return plan
}

// recordSignal appends the emitted decision to the ledger as a pending
// record, snapshotting the raw regime alongside the compressed buckets.
// Write failures are logged and swallowed so one bad row never sinks a scan.
func (s *Screener) recordSignal(
	ctx context.Context,
	symbol string,
	cr *clarity.ClarityResult,
	confidence float64,
	daily []market.Bar,
	regime string,
	ch conditions.ConditionHash,
	set *indicators.IndicatorSet,
	alignmentScore float64,
) *ledger.SignalRecord {
	direction := ledger.DirectionBuy
	target, stop := set.SR.R1, set.SR.S1
	if cr.Direction == indicators.Bearish {
		direction = ledger.DirectionSell
		target, stop = set.SR.S1, set.SR.R1
	}

	last := daily[len(daily)-1]
	record := &ledger.SignalRecord{
		Symbol:         symbol,
		Direction:      direction,
		Date:           ledger.Day(last.Date),
		Confidence:     confidence,
		BaseConfidence: cr.WeightedScore,
		EntryPrice:     last.Close,
		TargetPrice:    target,
		StopLoss:       stop,
		Status:         ledger.StatusPending,
		Conditions: ledger.ConditionSnapshot{
			Regime:          regime,
			AlignmentScore:  alignmentScore,
			ADX:             set.ADX.ADX,
			VolumeRatio:     set.Volume.Ratio,
			Hash:            ch.Hash,
			AlignmentBucket: ch.AlignmentBucket,
			ADXBucket:       ch.ADXBucket,
			VolumeBucket:    ch.VolumeBucket,
			RegimeBucket:    ch.RegimeBucket,
		},
	}

	if err := s.store.Upsert(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Signal ledger write failed")
		return nil
	}
	return record
}

// ClassifyRegime buckets the market state from trend strength and band width.
// Event-driven classification requires external inputs and is assigned
// upstream when available.
func ClassifyRegime(set *indicators.IndicatorSet) string {
	switch {
	case set.ADX.ADX >= 25:
		return conditions.RegimeTrendingStrong
	case set.ADX.ADX >= 15:
		return conditions.RegimeTrendingWeak
	case set.Bollinger.Bandwidth >= 12:
		return conditions.RegimeVolatile
	}
	return conditions.RegimeRange
}
