package clarity

// Enhanced confidence bounds. The final stated confidence never leaves this
// range.
const (
	MinConfidence = 50.0
	MaxConfidence = 95.0
)

// EnhanceConfidence applies the post-gate confidence formula: consensus and
// volume bonuses, the graduated persistence reward, and the summed gate
// adjustment, clamped to [50, 95].
func EnhanceConfidence(result *ClarityResult, gateAdjustment float64) float64 {
	confidence := result.WeightedScore

	// Strong consensus bonus
	if result.ClarityScore >= 83 {
		confidence += 5
	}

	// Volume: confirmation is rewarded; unconfirmed strength at high clarity
	// is suspicious and penalized
	if result.VolumeConfirmed {
		confidence += 5
	} else if result.ClarityScore >= 80 {
		confidence -= 10
	}

	// Graduated persistence reward: fresh signals are discounted
	switch result.SignalAge {
	case 3:
		confidence += 8
	case 2:
		confidence += 5
	default:
		confidence -= 8
	}

	confidence += gateAdjustment

	return clamp(confidence, MinConfidence, MaxConfidence)
}
