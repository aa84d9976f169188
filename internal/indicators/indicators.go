package indicators

import (
	"math"

	"stock-signal-engine/internal/market"
)

// Directional interpretation strings shared by the indicator results
const (
	Bullish    = "bullish"
	Bearish    = "bearish"
	Neutral    = "neutral"
	Overbought = "overbought"
	Oversold   = "oversold"
	Choppy     = "choppy"
)

// IndicatorSet bundles every indicator computed from one bar series.
// It is derived state: recomputed on every call, never persisted.
type IndicatorSet struct {
	RSI       RSIResult
	MA        MAResult
	MACD      MACDResult
	ADX       ADXResult
	Bollinger BollingerResult
	SR        SRLevels
	ATR       float64
	VWAP      float64
	Volume    VolumeResult
}

// Compute calculates the full indicator set for a bar series
func Compute(bars []market.Bar) *IndicatorSet {
	closes := market.Closes(bars)

	set := &IndicatorSet{
		RSI:       CalculateRSI(closes, 14),
		MACD:      CalculateMACD(closes),
		ADX:       CalculateADX(bars, 14),
		Bollinger: CalculateBollingerBands(closes, 20, 2.0),
		SR:        CalculateSupportResistance(bars, 20),
		ATR:       CalculateATR(bars, 14),
		VWAP:      CalculateVWAP(bars, 20),
		Volume:    AnalyzeVolume(bars),
	}
	set.MA = CalculateMovingAverages(closes)
	return set
}

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// MAResult holds the moving-average suite and its trend classification
type MAResult struct {
	SMA20  float64
	SMA50  float64
	SMA200 float64
	EMA9   float64
	EMA21  float64
	Trend  string
}

// CalculateSMA calculates a Simple Moving Average over the last `period`
// closes. With no data it returns 0; with fewer closes than the period it
// falls back to the most recent close.
func CalculateSMA(prices []float64, period int) float64 {
	if len(prices) == 0 || period <= 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// CalculateEMA calculates an Exponential Moving Average seeded with the SMA
// of the first `period` values
func CalculateEMA(prices []float64, period int) float64 {
	series := CalculateEMASeries(prices, period)
	if len(series) == 0 {
		return CalculateSMA(prices, period)
	}
	return series[len(series)-1]
}

// CalculateEMASeries returns the full EMA array so downstream consumers
// (MACD) can align series without recomputing. Entry 0 corresponds to price
// index period-1. Returns nil when there is not enough history to seed.
func CalculateEMASeries(prices []float64, period int) []float64 {
	if len(prices) < period || period <= 0 {
		return nil
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += prices[i]
	}
	seed /= float64(period)

	multiplier := 2.0 / float64(period+1)
	series := make([]float64, 0, len(prices)-period+1)
	series = append(series, seed)

	ema := seed
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		series = append(series, ema)
	}
	return series
}

// CalculateMovingAverages computes the MA suite and classifies the trend
func CalculateMovingAverages(prices []float64) MAResult {
	result := MAResult{
		SMA20:  CalculateSMA(prices, 20),
		SMA50:  CalculateSMA(prices, 50),
		SMA200: CalculateSMA(prices, 200),
		EMA9:   CalculateEMA(prices, 9),
		EMA21:  CalculateEMA(prices, 21),
		Trend:  Neutral,
	}

	if len(prices) == 0 {
		return result
	}

	price := prices[len(prices)-1]
	switch {
	case price > result.SMA20 && result.SMA20 > result.SMA50:
		if result.SMA50 > result.SMA200 && len(prices) >= 200 {
			result.Trend = "strong-bullish"
		} else {
			result.Trend = Bullish
		}
	case price < result.SMA20 && result.SMA20 < result.SMA50:
		if result.SMA50 < result.SMA200 && len(prices) >= 200 {
			result.Trend = "strong-bearish"
		} else {
			result.Trend = Bearish
		}
	}
	return result
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSIResult holds the RSI value and its interpretation
type RSIResult struct {
	Value          float64
	Interpretation string
}

// CalculateRSI calculates the Relative Strength Index over the last `period`
// deltas. Too little history is not an error: it returns the neutral sentinel
// {50, "neutral"}.
func CalculateRSI(prices []float64, period int) RSIResult {
	if len(prices) < period+1 {
		return RSIResult{Value: 50, Interpretation: Neutral}
	}

	gains := 0.0
	losses := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return RSIResult{Value: 100, Interpretation: Overbought}
	}

	rsi := 100 - 100/(1+avgGain/avgLoss)

	interpretation := Neutral
	if rsi >= 70 {
		interpretation = Overbought
	} else if rsi <= 30 {
		interpretation = Oversold
	}
	return RSIResult{Value: rsi, Interpretation: interpretation}
}

// ============================================================================
// MACD (Moving Average Convergence Divergence)
// ============================================================================

// MACDResult holds the MACD line, signal line, and histogram
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
	Trend     string
}

// CalculateMACD computes MACD from full EMA12/EMA26 arrays. The shorter EMA12
// series is aligned to EMA26 with a fixed offset of 14 (26-12). Fewer than 26
// bars yields the all-zero neutral sentinel; the signal line stays 0 below 35
// bars (26-bar warmup plus a full EMA9 window).
func CalculateMACD(prices []float64) MACDResult {
	result := MACDResult{Trend: Neutral}
	if len(prices) < 26 {
		return result
	}

	ema12 := CalculateEMASeries(prices, 12)
	ema26 := CalculateEMASeries(prices, 26)

	const offset = 14 // 26 - 12
	macdLine := make([]float64, len(ema26))
	for i := range ema26 {
		macdLine[i] = ema12[i+offset] - ema26[i]
	}

	result.MACD = macdLine[len(macdLine)-1]

	if len(prices) >= 35 {
		signalSeries := CalculateEMASeries(macdLine, 9)
		if len(signalSeries) > 0 {
			result.Signal = signalSeries[len(signalSeries)-1]
		}
	}
	result.Histogram = result.MACD - result.Signal

	// Both the histogram and the MACD line must agree before calling a trend
	if result.Histogram > 0 && result.MACD > 0 {
		result.Trend = Bullish
	} else if result.Histogram < 0 && result.MACD < 0 {
		result.Trend = Bearish
	}
	return result
}

// ============================================================================
// ADX (Average Directional Index)
// ============================================================================

// ADXResult holds ADX, the directional indicators, and the bucketed reads
type ADXResult struct {
	ADX            float64
	PlusDI         float64
	MinusDI        float64
	TrendStrength  string
	TrendDirection string
	History        []float64 // last 5 smoothed ADX values, oldest first
}

// CalculateADX computes the classic Wilder ADX with +DI/-DI. Each of true
// range, +DM, and -DM is smoothed with the Wilder recurrence (subtract
// 1/period of the running value, add the new sample) seeded by a plain sum
// over the first `period` samples. Needs at least 2*period+1 bars; below that
// it returns the all-zero choppy/neutral sentinel.
func CalculateADX(bars []market.Bar, period int) ADXResult {
	result := ADXResult{TrendStrength: Choppy, TrendDirection: Neutral}
	if len(bars) < 2*period+1 {
		return result
	}

	n := len(bars) - 1
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)

	for i := 1; i < len(bars); i++ {
		cur, prev := bars[i], bars[i-1]

		tr[i-1] = math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		if upMove > downMove && upMove > 0 {
			plusDM[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i-1] = downMove
		}
	}

	// Seed the smoothed sums over the first period samples
	var smTR, smPlus, smMinus float64
	for i := 0; i < period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	var plusDI, minusDI float64
	dx := make([]float64, 0, n-period+1)

	computeDX := func() float64 {
		if smTR == 0 {
			plusDI, minusDI = 0, 0
			return 0
		}
		plusDI = 100 * smPlus / smTR
		minusDI = 100 * smMinus / smTR
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}
	dx = append(dx, computeDX())

	for i := period; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dx = append(dx, computeDX())
	}

	// ADX: simple average of the first period DX values, then Wilder-smoothed
	adx := 0.0
	for i := 0; i < period; i++ {
		adx += dx[i]
	}
	adx /= float64(period)

	history := []float64{adx}
	for i := period; i < len(dx); i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		history = append(history, adx)
	}
	if len(history) > 5 {
		history = history[len(history)-5:]
	}

	result.ADX = adx
	result.PlusDI = plusDI
	result.MinusDI = minusDI
	result.History = history

	result.TrendStrength = classifyTrendStrength(adx)

	if adx >= 20 {
		if plusDI > minusDI {
			result.TrendDirection = Bullish
		} else if minusDI > plusDI {
			result.TrendDirection = Bearish
		}
	}
	return result
}

// classifyTrendStrength buckets an ADX value. Boundaries are inclusive at
// 25/20/15.
func classifyTrendStrength(adx float64) string {
	switch {
	case adx >= 25:
		return "strong"
	case adx >= 20:
		return "moderate"
	case adx >= 15:
		return "weak"
	}
	return Choppy
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerResult holds the band levels and the price position within them
type BollingerResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	Bandwidth float64
	Position  string
	PercentB  float64
}

// CalculateBollingerBands calculates SMA +/- k standard deviations over the
// trailing window. With insufficient data all bands collapse to the current
// price and the position reads middle.
func CalculateBollingerBands(prices []float64, period int, k float64) BollingerResult {
	if len(prices) == 0 {
		return BollingerResult{Position: "middle", PercentB: 0.5}
	}

	price := prices[len(prices)-1]
	if len(prices) < period {
		return BollingerResult{
			Upper:    price,
			Middle:   price,
			Lower:    price,
			Position: "middle",
			PercentB: 0.5,
		}
	}

	middle := CalculateSMA(prices, period)
	variance := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		diff := prices[i] - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	upper := middle + k*stdDev
	lower := middle - k*stdDev

	result := BollingerResult{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
	}
	if middle != 0 {
		result.Bandwidth = (upper - lower) / middle * 100
	}

	if upper == lower {
		result.PercentB = 0.5
	} else {
		result.PercentB = (price - lower) / (upper - lower)
	}

	// Position bucketed by band quartiles
	switch {
	case result.PercentB >= 0.75:
		result.Position = "upper"
	case result.PercentB >= 0.5:
		result.Position = "middle-upper"
	case result.PercentB >= 0.25:
		result.Position = "middle-lower"
	default:
		result.Position = "lower"
	}
	if result.PercentB == 0.5 {
		result.Position = "middle"
	}
	return result
}

// ============================================================================
// SUPPORT / RESISTANCE AND PIVOT POINTS
// ============================================================================

// SRLevels holds classic pivot levels plus trailing-window support/resistance
type SRLevels struct {
	Support    float64
	Resistance float64
	Pivot      float64
	R1         float64
	R2         float64
	S1         float64
	S2         float64
}

// CalculateSupportResistance derives classic pivots from the latest bar and
// support/resistance from the trailing window extremes. Fewer than 5 bars
// yields a synthetic 1-2% band around the last close.
func CalculateSupportResistance(bars []market.Bar, window int) SRLevels {
	if len(bars) == 0 {
		return SRLevels{}
	}

	last := bars[len(bars)-1]
	if len(bars) < 5 {
		close := last.Close
		return SRLevels{
			Support:    close * 0.98,
			Resistance: close * 1.02,
			Pivot:      close,
			R1:         close * 1.01,
			R2:         close * 1.02,
			S1:         close * 0.99,
			S2:         close * 0.98,
		}
	}

	pivot := (last.High + last.Low + last.Close) / 3

	start := len(bars) - window
	if start < 0 {
		start = 0
	}
	support := bars[start].Low
	resistance := bars[start].High
	for i := start; i < len(bars); i++ {
		if bars[i].Low < support {
			support = bars[i].Low
		}
		if bars[i].High > resistance {
			resistance = bars[i].High
		}
	}

	return SRLevels{
		Support:    support,
		Resistance: resistance,
		Pivot:      pivot,
		R1:         2*pivot - last.Low,
		R2:         pivot + (last.High - last.Low),
		S1:         2*pivot - last.High,
		S2:         pivot - (last.High - last.Low),
	}
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// CalculateATR calculates the mean true range over the trailing period.
// Returns 0 with fewer than period+1 bars.
func CalculateATR(bars []market.Bar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}

	trSum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		cur, prev := bars[i], bars[i-1]
		tr := math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		trSum += tr
	}
	return trSum / float64(period)
}

// ============================================================================
// VWAP
// ============================================================================

// CalculateVWAP calculates the volume-weighted close over the trailing
// window. Returns 0 when the window cannot be filled or no volume traded.
func CalculateVWAP(bars []market.Bar, window int) float64 {
	if len(bars) < window || window <= 0 {
		return 0
	}

	var priceVolume, totalVolume float64
	for i := len(bars) - window; i < len(bars); i++ {
		priceVolume += bars[i].Close * bars[i].Volume
		totalVolume += bars[i].Volume
	}
	if totalVolume == 0 {
		return 0
	}
	return priceVolume / totalVolume
}

// ============================================================================
// VOLUME ANALYSIS
// ============================================================================

// VolumeResult holds the current/average volume read and its trend bucket
type VolumeResult struct {
	Current float64
	Average float64
	Ratio   float64
	Trend   string
}

// AnalyzeVolume compares the latest bar's volume against the full-series
// average. Fewer than 5 bars yields the neutral default.
func AnalyzeVolume(bars []market.Bar) VolumeResult {
	if len(bars) < 5 {
		return VolumeResult{Ratio: 1, Trend: "normal"}
	}

	current := bars[len(bars)-1].Volume
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	average := sum / float64(len(bars))

	ratio := 1.0
	if average > 0 {
		ratio = current / average
	}

	trend := "normal"
	if ratio > 1.5 {
		trend = "high"
	} else if ratio < 0.5 {
		trend = "low"
	}

	return VolumeResult{
		Current: current,
		Average: average,
		Ratio:   ratio,
		Trend:   trend,
	}
}
