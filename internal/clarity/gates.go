package clarity

import (
	"fmt"

	"stock-signal-engine/internal/indicators"
)

// GateResult is the outcome of a single quality gate
type GateResult struct {
	Name       string
	Passed     bool
	Adjustment float64 // additive confidence delta, only meaningful when passed
	Reason     string
}

// QualityGate is a situational veto or bonus applied after clarity scoring.
// A failing gate removes the candidate entirely; a passing gate contributes
// its adjustment to the enhanced confidence.
type QualityGate interface {
	Name() string
	Evaluate(result *ClarityResult) GateResult
}

// DefaultGates returns the standard gate chain
func DefaultGates() []QualityGate {
	return []QualityGate{
		unconfirmedStrengthGate{},
		bareMajorityGate{},
		volumeSurgeGate{},
		exhaustionGate{},
	}
}

// RunGates evaluates every gate. The candidate fails as soon as any gate
// fails; adjustments from passing gates are summed.
func RunGates(gates []QualityGate, result *ClarityResult) (passed bool, adjustment float64, failures []string) {
	passed = true
	for _, gate := range gates {
		gr := gate.Evaluate(result)
		if !gr.Passed {
			passed = false
			failures = append(failures, fmt.Sprintf("%s: %s", gr.Name, gr.Reason))
			continue
		}
		adjustment += gr.Adjustment
	}
	return passed, adjustment, failures
}

// unconfirmedStrengthGate rejects the "too good to be true" pattern: very high
// clarity with no volume behind it
type unconfirmedStrengthGate struct{}

func (unconfirmedStrengthGate) Name() string { return "unconfirmed-strength" }

func (unconfirmedStrengthGate) Evaluate(result *ClarityResult) GateResult {
	gr := GateResult{Name: "unconfirmed-strength", Passed: true}
	if result.ClarityScore >= 90 && !result.VolumeConfirmed {
		gr.Passed = false
		gr.Reason = fmt.Sprintf("clarity %.0f with volume ratio %.2f below confirmation",
			result.ClarityScore, result.Indicators.Volume.Ratio)
	}
	return gr
}

// bareMajorityGate penalizes a split vote where the majority barely wins
type bareMajorityGate struct{}

func (bareMajorityGate) Name() string { return "bare-majority" }

func (bareMajorityGate) Evaluate(result *ClarityResult) GateResult {
	gr := GateResult{Name: "bare-majority", Passed: true}

	majority := result.IndicatorVotes.Bullish
	opposing := result.IndicatorVotes.Bearish
	if result.Direction == indicators.Bearish {
		majority, opposing = opposing, majority
	}
	if opposing > 0 && majority-opposing <= 1 {
		gr.Adjustment = -5
		gr.Reason = "majority leads opposing votes by one or less"
	}
	return gr
}

// volumeSurgeGate rewards signals backed by a clear volume surge
type volumeSurgeGate struct{}

func (volumeSurgeGate) Name() string { return "volume-surge" }

func (volumeSurgeGate) Evaluate(result *ClarityResult) GateResult {
	gr := GateResult{Name: "volume-surge", Passed: true}
	if result.VolumeConfirmed && result.Indicators.Volume.Ratio >= 1.5 {
		gr.Adjustment = 5
		gr.Reason = fmt.Sprintf("volume %.1fx average", result.Indicators.Volume.Ratio)
	}
	return gr
}

// exhaustionGate penalizes chasing a move that momentum says is stretched
type exhaustionGate struct{}

func (exhaustionGate) Name() string { return "exhaustion" }

func (exhaustionGate) Evaluate(result *ClarityResult) GateResult {
	gr := GateResult{Name: "exhaustion", Passed: true}
	rsi := result.Indicators.RSI.Value
	if result.Direction == indicators.Bullish && rsi >= 80 {
		gr.Adjustment = -10
		gr.Reason = fmt.Sprintf("buying into RSI %.0f", rsi)
	} else if result.Direction == indicators.Bearish && rsi <= 20 {
		gr.Adjustment = -10
		gr.Reason = fmt.Sprintf("selling into RSI %.0f", rsi)
	}
	return gr
}
