package calibration

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-signal-engine/internal/decision"
	"stock-signal-engine/internal/ledger"
)

// seedResolved inserts n resolved records at the given confidence, the first
// wins of them winners. The prefix keeps (symbol, day) keys distinct across
// calls.
func seedResolved(t *testing.T, store ledger.Store, prefix string, confidence float64, n, wins int) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	pnl := func(v float64) *float64 { return &v }
	for i := 0; i < n; i++ {
		rec := &ledger.SignalRecord{
			Symbol:      prefix + string(rune('A'+i%26)),
			Direction:   ledger.DirectionBuy,
			Date:        start.AddDate(0, 0, i/20),
			Confidence:  confidence,
			EntryPrice:  100,
			TargetPrice: 110,
			StopLoss:    95,
		}
		if i < wins {
			rec.Status = ledger.StatusTargetHit
			rec.PnLPercent = pnl(10)
		} else {
			rec.Status = ledger.StatusStopHit
			rec.PnLPercent = pnl(-5)
		}
		if err := store.Upsert(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuildNotReadyBelowFloor(t *testing.T) {
	store := ledger.NewMemoryStore()
	seedResolved(t, store, "NR", 75, MinResolved-1, 20)

	report, err := NewCalibrator(store, zerolog.Nop()).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Ready {
		t.Fatalf("Expected not ready at %d resolved", report.ResolvedCount)
	}
	for _, band := range report.Bands {
		if band.Factor != 1.0 {
			t.Errorf("Band %.0f-%.0f: expected neutral factor before readiness, got %f", band.Lower, band.Upper, band.Factor)
		}
	}
}

func TestBuildOverconfidentBand(t *testing.T) {
	store := ledger.NewMemoryStore()
	// 30 signals claimed 75% confidence but only 18 won: actual 60%
	seedResolved(t, store, "OC", 75, 30, 18)

	report, err := NewCalibrator(store, zerolog.Nop()).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Ready {
		t.Fatal("Expected ready at 30 resolved")
	}

	band := report.Bands[2]
	if band.Predicted != 75 {
		t.Fatalf("Expected 70-80 band midpoint 75, got %f", band.Predicted)
	}
	if band.ActualRate != 60 {
		t.Errorf("Expected actual rate 60, got %f", band.ActualRate)
	}
	if band.Deviation != -15 {
		t.Errorf("Expected deviation -15, got %f", band.Deviation)
	}
	if band.Status != StatusOverconfident {
		t.Errorf("Expected OVERCONFIDENT, got %s", band.Status)
	}
	// Factor tracks actual/predicted exactly
	if math.Abs(band.Factor-0.8) > 1e-9 {
		t.Errorf("Expected factor 0.8, got %f", band.Factor)
	}
}

func TestBuildUnderconfidentAndCalibratedBands(t *testing.T) {
	store := ledger.NewMemoryStore()
	// 55% claimed, 70% delivered: deviation +15
	seedResolved(t, store, "UC", 55, 20, 14)
	// 85% claimed, 80% delivered: within tolerance
	seedResolved(t, store, "CA", 85, 20, 16)

	report, err := NewCalibrator(store, zerolog.Nop()).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	low := report.Bands[0]
	if low.Status != StatusUnderconfident {
		t.Errorf("Expected 50-60 band UNDERCONFIDENT, got %s (actual %f)", low.Status, low.ActualRate)
	}

	high := report.Bands[3]
	if high.Status != StatusCalibrated {
		t.Errorf("Expected 80-90 band CALIBRATED, got %s (deviation %f)", high.Status, high.Deviation)
	}

	// Untouched bands stay neutral
	if report.Bands[4].Factor != 1.0 || report.Bands[4].Status != StatusCalibrated {
		t.Errorf("Expected empty band neutral, got %+v", report.Bands[4])
	}
}

func readyReport(factors [5]float64) *Report {
	report := &Report{Ready: true, ResolvedCount: 100}
	for i := range report.Bands {
		lower := 50.0 + float64(i)*10
		report.Bands[i] = Band{Lower: lower, Upper: lower + 10, Predicted: lower + 5, Factor: factors[i]}
	}
	return report
}

func TestApplyRescalesDominantSide(t *testing.T) {
	report := readyReport([5]float64{1, 1, 0.8, 1, 1})
	analysis := &decision.Analysis{
		Bullish: &decision.Scenario{Probability: 75},
		Bearish: &decision.Scenario{Probability: 25},
	}

	adj := Apply(report, analysis, decision.Decision{Category: decision.CategoryNeutral})
	if adj.Factor != 0.8 {
		t.Fatalf("Expected factor 0.8, got %f", adj.Factor)
	}
	if adj.BullishProbability != 60 || adj.BearishProbability != 40 {
		t.Errorf("Expected 60/40 split, got %f/%f", adj.BullishProbability, adj.BearishProbability)
	}
	if adj.Bias != "BULLISH" {
		t.Errorf("Expected BULLISH bias, got %s", adj.Bias)
	}
	if adj.Note != "" {
		t.Errorf("Expected no downgrade note, got %q", adj.Note)
	}
}

func TestApplyDowngradesStrongSetupOnNeutralBias(t *testing.T) {
	report := readyReport([5]float64{1, 0.8, 1, 1, 1})
	analysis := &decision.Analysis{
		Bullish: &decision.Scenario{Probability: 68},
		Bearish: &decision.Scenario{Probability: 32},
	}

	adj := Apply(report, analysis, decision.Decision{Category: decision.CategoryStrongSetup})
	// 68 * 0.8 = 54.4, inside the neutral zone
	if adj.Bias != "NEUTRAL" {
		t.Fatalf("Expected NEUTRAL bias, got %s (bull %f)", adj.Bias, adj.BullishProbability)
	}
	if adj.Category != decision.CategoryNeutral {
		t.Errorf("Expected downgrade to NEUTRAL, got %s", adj.Category)
	}
	if adj.Note == "" {
		t.Error("Expected a downgrade note")
	}
}

func TestApplyClampsAdjustedProbability(t *testing.T) {
	report := readyReport([5]float64{1, 1, 1, 1, 1.4})
	analysis := &decision.Analysis{
		Bullish: &decision.Scenario{Probability: 8},
		Bearish: &decision.Scenario{Probability: 92},
	}

	adj := Apply(report, analysis, decision.Decision{Category: decision.CategoryNeutral})
	// 92 * 1.4 = 128.8, clamped to the ceiling
	if adj.BearishProbability != MaxAdjusted {
		t.Errorf("Expected bearish clamped to %d, got %f", MaxAdjusted, adj.BearishProbability)
	}
	if adj.BullishProbability != 100-MaxAdjusted {
		t.Errorf("Expected complement %d, got %f", 100-MaxAdjusted, adj.BullishProbability)
	}
	if adj.Bias != "BEARISH" {
		t.Errorf("Expected BEARISH bias, got %s", adj.Bias)
	}
}

func TestApplyNotReadyLeavesAnalysisAlone(t *testing.T) {
	report := &Report{Ready: false}
	analysis := &decision.Analysis{
		Bullish: &decision.Scenario{Probability: 75},
		Bearish: &decision.Scenario{Probability: 25},
	}

	adj := Apply(report, analysis, decision.Decision{Category: decision.CategoryStrongSetup})
	if adj.Factor != 1.0 {
		t.Fatalf("Expected neutral factor, got %f", adj.Factor)
	}
	if adj.BullishProbability != 75 || adj.BearishProbability != 25 {
		t.Errorf("Expected unchanged 75/25, got %f/%f", adj.BullishProbability, adj.BearishProbability)
	}
	if adj.Category != decision.CategoryStrongSetup {
		t.Errorf("Expected category preserved, got %s", adj.Category)
	}
}

func TestBandIndex(t *testing.T) {
	cases := []struct {
		confidence float64
		idx        int
		ok         bool
	}{
		{49.9, 0, false},
		{50, 0, true},
		{59.9, 0, true},
		{60, 1, true},
		{75, 2, true},
		{90, 4, true},
		{100, 4, true},
	}
	for _, c := range cases {
		idx, ok := bandIndex(c.confidence)
		if ok != c.ok || (ok && idx != c.idx) {
			t.Errorf("bandIndex(%f) = %d,%v, want %d,%v", c.confidence, idx, ok, c.idx, c.ok)
		}
	}
}
