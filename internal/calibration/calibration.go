// Package calibration compares the confidence the engine claimed with the win
// rate the ledger actually recorded, and feeds the correction back into new
// probabilities.
package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stock-signal-engine/internal/decision"
	"stock-signal-engine/internal/ledger"
)

// Calibration verdicts per confidence band
const (
	StatusCalibrated     = "CALIBRATED"
	StatusOverconfident  = "OVERCONFIDENT"
	StatusUnderconfident = "UNDERCONFIDENT"
)

// MinResolved is the resolved-signal floor below which the report is built but
// marked not ready and every adjustment factor stays at 1.0
const MinResolved = 30

// deviationTolerance is the band deviation (percentage points) still counted
// as calibrated
const deviationTolerance = 10

// Probability floor and ceiling after a calibration adjustment
const (
	MinAdjusted = 30
	MaxAdjusted = 95
)

// Band is one 10-point confidence bucket and its empirical verdict
type Band struct {
	Lower      float64
	Upper      float64
	Predicted  float64 // band midpoint
	Total      int
	Wins       int
	ActualRate float64 // percent, 0 when the band is empty
	Deviation  float64 // ActualRate - Predicted
	Status     string
	Factor     float64 // ActualRate / Predicted, 1.0 when empty or not ready
}

// Report is a full calibration pass over the resolved ledger
type Report struct {
	Ready         bool
	ResolvedCount int
	Bands         [5]Band
	GeneratedAt   time.Time
}

// Adjustment is the outcome of applying a calibration report to one analysis
type Adjustment struct {
	BullishProbability float64
	BearishProbability float64
	Bias               string
	Category           string
	Factor             float64
	Note               string
}

// Calibrator builds calibration reports from the resolved ledger
type Calibrator struct {
	store  ledger.Store
	logger zerolog.Logger
}

// NewCalibrator creates a calibrator over the ledger store
func NewCalibrator(store ledger.Store, logger zerolog.Logger) *Calibrator {
	return &Calibrator{store: store, logger: logger}
}

// Build groups every resolved signal into its confidence band and scores each
// band against its midpoint. Too little data is a not-ready report, never an
// error.
func (c *Calibrator) Build(ctx context.Context) (*Report, error) {
	records, err := c.store.Find(ctx, ledger.Filter{Statuses: ledger.ResolvedStatuses})
	if err != nil {
		return nil, fmt.Errorf("load resolved signals: %w", err)
	}

	report := &Report{
		ResolvedCount: len(records),
		GeneratedAt:   time.Now().UTC(),
	}
	for i := range report.Bands {
		lower := 50.0 + float64(i)*10
		report.Bands[i] = Band{
			Lower:     lower,
			Upper:     lower + 10,
			Predicted: lower + 5,
			Factor:    1.0,
		}
	}

	for _, rec := range records {
		idx, ok := bandIndex(rec.Confidence)
		if !ok {
			continue
		}
		report.Bands[idx].Total++
		if rec.Won() {
			report.Bands[idx].Wins++
		}
	}

	report.Ready = report.ResolvedCount >= MinResolved
	if !report.Ready {
		c.logger.Info().
			Int("resolved", report.ResolvedCount).
			Int("required", MinResolved).
			Msg("Calibration not ready, adjustments disabled")
		return report, nil
	}

	for i := range report.Bands {
		band := &report.Bands[i]
		if band.Total == 0 {
			band.Status = StatusCalibrated
			continue
		}

		band.ActualRate = float64(band.Wins) / float64(band.Total) * 100
		band.Deviation = band.ActualRate - band.Predicted
		band.Factor = band.ActualRate / band.Predicted

		switch {
		case band.Deviation < -deviationTolerance:
			band.Status = StatusOverconfident
		case band.Deviation > deviationTolerance:
			band.Status = StatusUnderconfident
		default:
			band.Status = StatusCalibrated
		}

		c.logger.Debug().
			Float64("lower", band.Lower).
			Float64("actual", band.ActualRate).
			Float64("deviation", band.Deviation).
			Str("status", band.Status).
			Msg("Calibration band scored")
	}

	return report, nil
}

// Apply rescales the dominant scenario probability by its band's adjustment
// factor and recomputes the directional bias from the new split. A
// STRONG_SETUP whose bias dissolves to NEUTRAL is downgraded.
func Apply(report *Report, analysis *decision.Analysis, dec decision.Decision) Adjustment {
	analysis.Normalize()

	adj := Adjustment{
		BullishProbability: analysis.Bullish.Probability,
		BearishProbability: analysis.Bearish.Probability,
		Category:           dec.Category,
		Factor:             1.0,
	}

	bullDominant := adj.BullishProbability >= adj.BearishProbability
	dominant := adj.BullishProbability
	if !bullDominant {
		dominant = adj.BearishProbability
	}

	if report != nil && report.Ready {
		if idx, ok := bandIndex(dominant); ok {
			adj.Factor = report.Bands[idx].Factor
		}
	}

	dominant = clamp(dominant*adj.Factor, MinAdjusted, MaxAdjusted)
	complement := 100 - dominant

	if bullDominant {
		adj.BullishProbability = dominant
		adj.BearishProbability = complement
	} else {
		adj.BearishProbability = dominant
		adj.BullishProbability = complement
	}

	adj.Bias = biasFor(adj.BullishProbability, adj.BearishProbability)

	if dec.Category == decision.CategoryStrongSetup && adj.Bias == "NEUTRAL" {
		adj.Category = decision.CategoryNeutral
		adj.Note = "strong setup downgraded: calibrated probabilities no longer favor a direction"
	}

	return adj
}

// bandIndex maps a confidence value onto its 10-point band. Values below 50
// sit under every band and stay unadjusted; 100 folds into the top band.
func bandIndex(confidence float64) (int, bool) {
	if confidence < 50 {
		return 0, false
	}
	idx := int((confidence - 50) / 10)
	if idx > 4 {
		idx = 4
	}
	return idx, true
}

func biasFor(bull, bear float64) string {
	switch {
	case bull > 55 && bear <= 45:
		return "BULLISH"
	case bear > 55 && bull <= 45:
		return "BEARISH"
	}
	return "NEUTRAL"
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
