// Package alignment reconciles daily, weekly, and monthly trend reads into a
// single alignment score and tradeable flag. Monthly is the primary trend and
// carries the largest weight.
package alignment

import (
	"fmt"
	"math"

	"stock-signal-engine/internal/indicators"
	"stock-signal-engine/internal/market"
)

// Timeframe weights. Monthly dominates.
const (
	DailyWeight   = 0.20
	WeeklyWeight  = 0.35
	MonthlyWeight = 0.45
)

// TradeableThreshold is the minimum alignment score for a tradeable read
const TradeableThreshold = 60.0

// TimeframeTrend is one timeframe's directional read
type TimeframeTrend struct {
	Trend      string  // bullish, bearish, or neutral
	Confidence float64 // 90 all sub-signals agree, 70 two agree, else 50
	RSI        float64
	MATrend    string
}

// Result is the combined multi-timeframe read
type Result struct {
	Aligned      bool
	Score        int // 0-100
	OverallTrend string
	Daily        *TimeframeTrend
	Weekly       *TimeframeTrend
	Monthly      *TimeframeTrend
	Conflicts    []string
	Tradeable    bool
}

// Checker derives per-timeframe trends and combines them
type Checker struct{}

// NewChecker creates an alignment checker
func NewChecker() *Checker {
	return &Checker{}
}

// Check combines the available timeframes. Weekly and monthly bars may be nil
// when that history is unavailable; the score renormalizes over the weights
// actually present.
func (c *Checker) Check(daily, weekly, monthly []market.Bar) *Result {
	result := &Result{
		Daily:        AnalyzeTimeframe(daily),
		OverallTrend: indicators.Neutral,
	}
	if len(weekly) > 0 {
		result.Weekly = AnalyzeTimeframe(weekly)
	}
	if len(monthly) > 0 {
		result.Monthly = AnalyzeTimeframe(monthly)
	}

	// Overall trend favors the slower timeframes
	for _, tf := range []*TimeframeTrend{result.Monthly, result.Weekly, result.Daily} {
		if tf != nil && tf.Trend != indicators.Neutral {
			result.OverallTrend = tf.Trend
			break
		}
	}

	dailyContrib := contribution(result.Daily, result.OverallTrend)
	weeklyContrib := contribution(result.Weekly, result.OverallTrend)
	monthlyContrib := contribution(result.Monthly, result.OverallTrend)

	// Disagreement between timeframes cuts the higher-weight contribution and
	// records a conflict; it does not hard-block on its own.
	if disagree(result.Weekly, result.Daily) {
		weeklyContrib *= 0.5
		result.Conflicts = append(result.Conflicts,
			fmt.Sprintf("weekly %s vs daily %s", result.Weekly.Trend, result.Daily.Trend))
	}
	if disagree(result.Monthly, result.Daily) {
		monthlyContrib *= 0.4
		result.Conflicts = append(result.Conflicts,
			fmt.Sprintf("monthly %s vs daily %s", result.Monthly.Trend, result.Daily.Trend))
	} else if disagree(result.Monthly, result.Weekly) {
		monthlyContrib *= 0.4
		result.Conflicts = append(result.Conflicts,
			fmt.Sprintf("monthly %s vs weekly %s", result.Monthly.Trend, result.Weekly.Trend))
	}

	// Full agreement across available timeframes boosts the primary trend
	if len(result.Conflicts) == 0 && fullAgreement(result) {
		if result.Monthly != nil {
			monthlyContrib *= 1.25
		} else if result.Weekly != nil {
			weeklyContrib *= 1.25
		} else {
			dailyContrib *= 1.25
		}
	}

	totalWeight := DailyWeight
	weighted := DailyWeight * dailyContrib
	if result.Weekly != nil {
		totalWeight += WeeklyWeight
		weighted += WeeklyWeight * weeklyContrib
	}
	if result.Monthly != nil {
		totalWeight += MonthlyWeight
		weighted += MonthlyWeight * monthlyContrib
	}

	score := math.Round(weighted / totalWeight)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	result.Score = int(score)

	result.Aligned = len(result.Conflicts) == 0 && result.OverallTrend != indicators.Neutral
	result.Tradeable = result.Score >= TradeableThreshold
	return result
}

// AnalyzeTimeframe derives one timeframe's trend from three independent
// sub-signals: the RSI bucket, the MA-trend classification, and a momentum
// proxy. Majority vote among the three; confidence reflects how many agreed.
func AnalyzeTimeframe(bars []market.Bar) *TimeframeTrend {
	closes := market.Closes(bars)
	rsi := indicators.CalculateRSI(closes, 14)
	ma := indicators.CalculateMovingAverages(closes)

	votes := map[string]int{}

	// RSI bucket
	rsiRead := indicators.Neutral
	if rsi.Value > 55 {
		rsiRead = indicators.Bullish
	} else if rsi.Value < 45 {
		rsiRead = indicators.Bearish
	}
	votes[rsiRead]++

	// MA trend classification
	maRead := indicators.Neutral
	switch ma.Trend {
	case indicators.Bullish, "strong-bullish":
		maRead = indicators.Bullish
	case indicators.Bearish, "strong-bearish":
		maRead = indicators.Bearish
	}
	votes[maRead]++

	// Momentum proxy
	momentumRead := indicators.Neutral
	if rsi.Value > 60 {
		momentumRead = indicators.Bullish
	} else if rsi.Value < 40 {
		momentumRead = indicators.Bearish
	}
	votes[momentumRead]++

	trend := indicators.Neutral
	best := 0
	for _, dir := range []string{indicators.Bullish, indicators.Bearish} {
		if votes[dir] > best && votes[dir] >= 2 {
			trend = dir
			best = votes[dir]
		}
	}

	confidence := 50.0
	if trend != indicators.Neutral {
		if votes[trend] == 3 {
			confidence = 90
		} else {
			confidence = 70
		}
	}

	return &TimeframeTrend{
		Trend:      trend,
		Confidence: confidence,
		RSI:        rsi.Value,
		MATrend:    ma.Trend,
	}
}

// contribution maps a timeframe read onto the overall trend: agreement
// contributes its confidence, neutral sits at 50, and opposition contributes
// the complement.
func contribution(tf *TimeframeTrend, overall string) float64 {
	if tf == nil {
		return 0
	}
	if tf.Trend == indicators.Neutral || overall == indicators.Neutral {
		return 50
	}
	if tf.Trend == overall {
		return tf.Confidence
	}
	return 100 - tf.Confidence
}

func disagree(a, b *TimeframeTrend) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Trend != indicators.Neutral && b.Trend != indicators.Neutral && a.Trend != b.Trend
}

func fullAgreement(r *Result) bool {
	var trend string
	for _, tf := range []*TimeframeTrend{r.Daily, r.Weekly, r.Monthly} {
		if tf == nil {
			continue
		}
		if tf.Trend == indicators.Neutral {
			return false
		}
		if trend == "" {
			trend = tf.Trend
		} else if tf.Trend != trend {
			return false
		}
	}
	return trend != ""
}
