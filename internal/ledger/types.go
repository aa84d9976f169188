package ledger

import "time"

// Signal directions
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// Signal lifecycle states. A record is created PENDING, mutated exactly once
// into a terminal state by the resolver, and immutable thereafter.
const (
	StatusPending   = "PENDING"
	StatusTargetHit = "TARGET_HIT"
	StatusStopHit   = "STOP_HIT"
	StatusExpired   = "EXPIRED"
)

// ExpiryDays is how long an unresolved signal may stay PENDING before it is
// forced to EXPIRED
const ExpiryDays = 10

// ConditionSnapshot captures the market conditions a signal was emitted
// under: the four raw inputs, their buckets, and the condition hash
type ConditionSnapshot struct {
	Regime          string
	AlignmentScore  float64
	ADX             float64
	VolumeRatio     float64
	Hash            string
	AlignmentBucket string
	ADXBucket       string
	VolumeBucket    string
	RegimeBucket    string
}

// SignalRecord is one ledger row: an emitted signal and its eventual
// resolution. Keyed by (symbol, date): same-day re-analysis updates the
// existing row.
type SignalRecord struct {
	Symbol         string
	Direction      string
	Date           time.Time // calendar day the signal was emitted
	Confidence     float64
	BaseConfidence float64
	Conditions     ConditionSnapshot
	EntryPrice     float64
	TargetPrice    float64
	StopLoss       float64
	Status         string
	OutcomeDate    *time.Time
	OutcomePrice   *float64
	PnLPercent     *float64
	DaysToOutcome  *int
}

// Resolved reports whether the record has reached a terminal state
func (r *SignalRecord) Resolved() bool {
	return r.Status != StatusPending
}

// Won reports whether the signal played out as predicted
func (r *SignalRecord) Won() bool {
	return r.Status == StatusTargetHit
}

// Day normalizes a timestamp to its calendar day in UTC, the ledger's upsert
// key granularity
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
