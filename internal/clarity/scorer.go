package clarity

import (
	"stock-signal-engine/internal/indicators"
)

// MinClarityThreshold is the admission floor: candidates scoring below it are
// dropped before any quality gate runs.
const MinClarityThreshold = 60.0

// VolumeConfirmThreshold is the volume ratio above which a signal counts as
// volume-confirmed
const VolumeConfirmThreshold = 1.2

// Signal is a single indicator's directional vote
type Signal struct {
	Name      string
	Direction string // bullish, bearish, or neutral
	Strength  float64 // 0.0 to 1.0
	Detail    string
}

// VoteCount tallies votes per direction
type VoteCount struct {
	Bullish int
	Bearish int
	Neutral int
}

// PriorSignal carries the previous scan's read for a symbol so signal age can
// be tracked without the scorer holding state
type PriorSignal struct {
	Direction string
	Age       int
}

// ClarityResult is the scorer's per-symbol output
type ClarityResult struct {
	Symbol          string
	Direction       string
	ClarityScore    float64 // 0-100, fraction of indicators agreeing
	WeightedScore   float64 // 0-100, strength-weighted agreement
	IndicatorVotes  VoteCount
	Signals         []Signal
	VolumeConfirmed bool
	SignalAge       int // 1, 2, or 3 (capped)
	SignalStrength  string
	Indicators      *indicators.IndicatorSet
}

// Scorer aggregates indicator votes into a directional call with a bounded
// clarity score
type Scorer struct {
	neutralDrag float64 // strength assigned to neutral votes in the weighted denominator
}

// NewScorer creates a scorer with default weighting
func NewScorer() *Scorer {
	return &Scorer{neutralDrag: 0.25}
}

// Score turns an indicator set into a clarity result. prev may be nil when
// the symbol has no scan history.
func (s *Scorer) Score(symbol string, set *indicators.IndicatorSet, prev *PriorSignal) *ClarityResult {
	signals := collectVotes(set)

	result := &ClarityResult{
		Symbol:     symbol,
		Signals:    signals,
		Indicators: set,
	}

	var bullStrength, bearStrength, totalStrength float64
	for _, sig := range signals {
		switch sig.Direction {
		case indicators.Bullish:
			result.IndicatorVotes.Bullish++
			bullStrength += sig.Strength
			totalStrength += sig.Strength
		case indicators.Bearish:
			result.IndicatorVotes.Bearish++
			bearStrength += sig.Strength
			totalStrength += sig.Strength
		default:
			result.IndicatorVotes.Neutral++
			totalStrength += s.neutralDrag
		}
	}

	// Majority direction; strength breaks a tied vote count
	agreeing := result.IndicatorVotes.Bullish
	agreeingStrength := bullStrength
	result.Direction = indicators.Bullish
	if result.IndicatorVotes.Bearish > result.IndicatorVotes.Bullish ||
		(result.IndicatorVotes.Bearish == result.IndicatorVotes.Bullish && bearStrength > bullStrength) {
		result.Direction = indicators.Bearish
		agreeing = result.IndicatorVotes.Bearish
		agreeingStrength = bearStrength
	}

	total := len(signals)
	if total > 0 {
		result.ClarityScore = float64(agreeing) / float64(total) * 100
	}
	if totalStrength > 0 {
		result.WeightedScore = agreeingStrength / totalStrength * 100
	}
	result.ClarityScore = clamp(result.ClarityScore, 0, 100)
	result.WeightedScore = clamp(result.WeightedScore, 0, 100)

	result.VolumeConfirmed = set.Volume.Ratio >= VolumeConfirmThreshold
	result.SignalAge = signalAge(result.Direction, prev)
	result.SignalStrength = classifyStrength(result.ClarityScore)

	return result
}

// collectVotes casts one directional vote per indicator
func collectVotes(set *indicators.IndicatorSet) []Signal {
	votes := make([]Signal, 0, 6)

	// RSI momentum read
	rsiVote := Signal{Name: "rsi", Direction: indicators.Neutral, Detail: set.RSI.Interpretation}
	if set.RSI.Value > 55 {
		rsiVote.Direction = indicators.Bullish
		rsiVote.Strength = clamp((set.RSI.Value-55)/45, 0, 1)
	} else if set.RSI.Value < 45 {
		rsiVote.Direction = indicators.Bearish
		rsiVote.Strength = clamp((45-set.RSI.Value)/45, 0, 1)
	}
	votes = append(votes, rsiVote)

	// Moving-average alignment
	maVote := Signal{Name: "ma", Direction: indicators.Neutral, Detail: set.MA.Trend}
	switch set.MA.Trend {
	case "strong-bullish":
		maVote.Direction, maVote.Strength = indicators.Bullish, 1.0
	case indicators.Bullish:
		maVote.Direction, maVote.Strength = indicators.Bullish, 0.7
	case "strong-bearish":
		maVote.Direction, maVote.Strength = indicators.Bearish, 1.0
	case indicators.Bearish:
		maVote.Direction, maVote.Strength = indicators.Bearish, 0.7
	}
	votes = append(votes, maVote)

	// MACD trend (already requires line/histogram agreement)
	macdVote := Signal{Name: "macd", Direction: set.MACD.Trend, Detail: set.MACD.Trend}
	if set.MACD.Trend != indicators.Neutral {
		macdVote.Strength = 0.8
	}
	votes = append(votes, macdVote)

	// ADX directional read, weighted by trend strength
	adxVote := Signal{Name: "adx", Direction: set.ADX.TrendDirection, Detail: set.ADX.TrendStrength}
	if set.ADX.TrendDirection != indicators.Neutral {
		adxVote.Strength = clamp(set.ADX.ADX/50, 0, 1)
	}
	votes = append(votes, adxVote)

	// Bollinger position
	bbVote := Signal{Name: "bollinger", Direction: indicators.Neutral, Detail: set.Bollinger.Position}
	if set.Bollinger.PercentB >= 0.6 {
		bbVote.Direction = indicators.Bullish
		bbVote.Strength = clamp((set.Bollinger.PercentB-0.5)*2, 0, 1)
	} else if set.Bollinger.PercentB <= 0.4 {
		bbVote.Direction = indicators.Bearish
		bbVote.Strength = clamp((0.5-set.Bollinger.PercentB)*2, 0, 1)
	}
	votes = append(votes, bbVote)

	// Price relative to VWAP
	vwapVote := Signal{Name: "vwap", Direction: indicators.Neutral}
	if set.VWAP > 0 {
		price := set.Bollinger.Upper // fallback when SR is synthetic
		if set.SR.Pivot > 0 {
			price = set.SR.Pivot
		}
		if price > set.VWAP*1.002 {
			vwapVote.Direction, vwapVote.Strength = indicators.Bullish, 0.5
		} else if price < set.VWAP*0.998 {
			vwapVote.Direction, vwapVote.Strength = indicators.Bearish, 0.5
		}
	}
	votes = append(votes, vwapVote)

	return votes
}

func signalAge(direction string, prev *PriorSignal) int {
	if prev == nil || prev.Direction != direction {
		return 1
	}
	age := prev.Age + 1
	if age > 3 {
		age = 3
	}
	return age
}

func classifyStrength(clarityScore float64) string {
	switch {
	case clarityScore >= 80:
		return "strong"
	case clarityScore >= 65:
		return "moderate"
	}
	return "weak"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
