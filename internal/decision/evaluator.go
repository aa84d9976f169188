// Package decision converts a scored candidate into a deterministic trade
// decision. Both evaluators are pure functions of their input: same analysis
// in, same decision out.
package decision

import (
	"fmt"

	"stock-signal-engine/internal/indicators"
)

// Decision categories
const (
	CategoryStrongSetup = "STRONG_SETUP"
	CategoryNeutral     = "NEUTRAL"
	CategoryAvoid       = "AVOID"
)

// TradePlan carries the price levels for one directional scenario
type TradePlan struct {
	Entry      float64
	Target     float64
	StopLoss   float64
	RiskReward float64
}

// Scenario is one directional outcome with its probability (percent) and plan
type Scenario struct {
	Probability float64
	Plan        TradePlan
}

// PatternInfo describes a detected chart pattern
type PatternInfo struct {
	Name       string
	Confidence float64 // percent
}

// NewsInfo carries the qualitative news read attached upstream
type NewsInfo struct {
	Conflicting bool
	Headline    string
}

// Analysis is the typed payload both evaluators consume. Optional sections
// are pointers; Normalize enforces missing-field defaults once, at the
// boundary, so the checks themselves never special-case absent data.
type Analysis struct {
	Symbol           string
	Bullish          *Scenario
	Bearish          *Scenario
	Pattern          *PatternInfo
	VolumeRatio      *float64 // nil when no volume read is available; 0 is a real reading
	RSI              float64
	MATrend          string
	News             *NewsInfo
	AIConfidence     string // "", "low", "medium", "high"
	UpstreamCategory string // pass-through category from earlier stages
}

// Decision is the evaluator's verdict
type Decision struct {
	ShouldTrade bool
	Category    string
	Reason      string
	Warnings    []string
}

// RedFlagResult lists every failing deterministic check
type RedFlagResult struct {
	Passed bool
	Flags  []string
}

// Normalize fills neutral defaults for absent optional sections
func (a *Analysis) Normalize() {
	if a.Bullish == nil {
		a.Bullish = &Scenario{}
	}
	if a.Bearish == nil {
		a.Bearish = &Scenario{}
	}
	if a.VolumeRatio == nil {
		neutral := 1.0
		a.VolumeRatio = &neutral
	}
	if a.RSI == 0 {
		a.RSI = 50
	}
	if a.MATrend == "" {
		a.MATrend = indicators.Neutral
	}
}

// dominantProbability returns the larger of the two scenario probabilities
func (a *Analysis) dominantProbability() float64 {
	if a.Bullish.Probability >= a.Bearish.Probability {
		return a.Bullish.Probability
	}
	return a.Bearish.Probability
}

// maxRiskReward returns the better risk/reward across both plans
func (a *Analysis) maxRiskReward() float64 {
	rr := a.Bullish.Plan.RiskReward
	if a.Bearish.Plan.RiskReward > rr {
		rr = a.Bearish.Plan.RiskReward
	}
	return rr
}

// rsiConflictsWithMA reports a momentum read fighting the moving averages
func (a *Analysis) rsiConflictsWithMA() bool {
	bullishMA := a.MATrend == indicators.Bullish || a.MATrend == "strong-bullish"
	bearishMA := a.MATrend == indicators.Bearish || a.MATrend == "strong-bearish"
	return (a.RSI > 60 && bearishMA) || (a.RSI < 40 && bullishMA)
}

// ShouldTrade runs the ordered checklist and returns on the first failing
// check. Advisory warnings are appended regardless of the outcome.
func ShouldTrade(analysis *Analysis) Decision {
	analysis.Normalize()

	decision := Decision{}
	dominant := analysis.dominantProbability()
	maxRR := analysis.maxRiskReward()

	fail := func(category, reason string) Decision {
		decision.ShouldTrade = false
		decision.Category = category
		decision.Reason = reason
		decision.Warnings = collectWarnings(analysis)
		return decision
	}

	// 1. Coin-flip probability
	if dominant >= 45 && dominant <= 55 {
		return fail(CategoryAvoid, fmt.Sprintf("coin-flip probability (%.0f%%)", dominant))
	}

	// 2. Weak pattern confidence (only when a pattern is present)
	if analysis.Pattern != nil && analysis.Pattern.Confidence > 0 && analysis.Pattern.Confidence < 70 {
		return fail(CategoryAvoid, fmt.Sprintf("pattern confidence %.0f%% below 70%%", analysis.Pattern.Confidence))
	}

	// 3. Dried-up volume
	if *analysis.VolumeRatio < 0.5 {
		return fail(CategoryAvoid, fmt.Sprintf("volume ratio %.2f below 0.5", *analysis.VolumeRatio))
	}

	// 4. RSI fighting the moving averages
	if analysis.rsiConflictsWithMA() {
		return fail(CategoryNeutral, fmt.Sprintf("RSI %.0f conflicts with %s MA trend", analysis.RSI, analysis.MATrend))
	}

	// 5. No conviction either way
	if analysis.Bullish.Probability < 60 && analysis.Bearish.Probability < 60 {
		return fail(CategoryNeutral, "neither direction clears 60% probability")
	}

	// 6. Poor risk/reward (only when a plan is present)
	if maxRR > 0 && maxRR < 1.5 {
		return fail(CategoryAvoid, fmt.Sprintf("risk/reward %.2f below 1.5", maxRR))
	}

	// 7. Upstream already flagged this one
	if analysis.UpstreamCategory == CategoryAvoid {
		return fail(CategoryAvoid, "upstream analysis flagged AVOID")
	}

	decision.ShouldTrade = true
	decision.Category = CategoryNeutral
	decision.Reason = "all checks passed"

	patternConf := 0.0
	if analysis.Pattern != nil {
		patternConf = analysis.Pattern.Confidence
	}
	if dominant > 65 && patternConf > 75 && *analysis.VolumeRatio > 0.8 && maxRR > 2.0 {
		decision.Category = CategoryStrongSetup
		decision.Reason = "strong setup: probability, pattern, volume, and risk/reward all favorable"
	}

	decision.Warnings = collectWarnings(analysis)
	return decision
}

// CheckRedFlags evaluates every deterministic threshold without
// short-circuiting and returns the complete failure list
func CheckRedFlags(analysis *Analysis) RedFlagResult {
	analysis.Normalize()

	var flags []string

	if analysis.Pattern != nil && analysis.Pattern.Confidence > 0 && analysis.Pattern.Confidence <= 70 {
		flags = append(flags, fmt.Sprintf("pattern confidence %.0f%% at or below 70%%", analysis.Pattern.Confidence))
	}
	if analysis.Bullish.Probability < 60 && analysis.Bearish.Probability < 60 {
		flags = append(flags, "both directional probabilities below 60%")
	}
	if *analysis.VolumeRatio < 0.5 {
		flags = append(flags, fmt.Sprintf("volume ratio %.2f below 0.5", *analysis.VolumeRatio))
	}
	if rr := analysis.maxRiskReward(); rr > 0 && rr < 1.5 {
		flags = append(flags, fmt.Sprintf("risk/reward %.2f below 1.5", rr))
	}
	if analysis.News != nil && analysis.News.Conflicting {
		flags = append(flags, "news conflicts with technical direction")
	}

	return RedFlagResult{Passed: len(flags) == 0, Flags: flags}
}

// collectWarnings gathers non-blocking advisories
func collectWarnings(analysis *Analysis) []string {
	var warnings []string

	if *analysis.VolumeRatio < 0.75 {
		warnings = append(warnings, fmt.Sprintf("volume at %.0f%% of average", *analysis.VolumeRatio*100))
	}
	if analysis.Pattern != nil && analysis.Pattern.Confidence >= 70 && analysis.Pattern.Confidence < 80 {
		warnings = append(warnings, fmt.Sprintf("moderate pattern confidence (%.0f%%)", analysis.Pattern.Confidence))
	}
	if analysis.AIConfidence == "low" {
		warnings = append(warnings, "qualitative analysis reported low confidence")
	}

	return warnings
}
