package screener

import (
	"time"

	"stock-signal-engine/internal/calibration"
	"stock-signal-engine/internal/conditions"
	"stock-signal-engine/internal/decision"
	"stock-signal-engine/internal/ledger"
)

// ScanResult is one full screening pass over the configured universe
type ScanResult struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Results   []SymbolResult
	Skipped   []SkippedSymbol
}

// SkippedSymbol records a symbol dropped from the scan and why
type SkippedSymbol struct {
	Symbol string
	Reason string
}

// SymbolResult is the full pipeline output for one symbol
type SymbolResult struct {
	Symbol         string
	Direction      string
	Confidence     float64
	ClarityScore   float64
	SignalStrength string
	AlignmentScore int
	Tradeable      bool
	Regime         string
	ConditionHash  string
	Probability    *conditions.Probability
	Decision       decision.Decision
	Calibrated     calibration.Adjustment
	Rejected       bool
	RejectReason   string
	Signal         *ledger.SignalRecord // recorded signal, nil when none was emitted
}

// TradeableResults filters the scan down to symbols that cleared every check
func (r *ScanResult) TradeableResults() []SymbolResult {
	var out []SymbolResult
	for _, res := range r.Results {
		if !res.Rejected && res.Decision.ShouldTrade {
			out = append(out, res)
		}
	}
	return out
}
