package ledger

import (
	"context"
	"time"
)

// ResolvedStatuses lists every terminal state
var ResolvedStatuses = []string{StatusTargetHit, StatusStopHit, StatusExpired}

// Filter narrows a Find query. Zero fields are ignored.
type Filter struct {
	Symbol        string
	Statuses      []string
	ConditionHash string
	Since         time.Time
}

// AggregateQuery groups resolved rows for summary statistics
type AggregateQuery struct {
	GroupBy  string // "condition_hash" or "direction"
	Statuses []string
}

// AggregateRow is one group's win/loss summary
type AggregateRow struct {
	Key    string
	Total  int
	Wins   int
	AvgPnL float64
}

// Store is the ledger persistence contract. Upsert is idempotent per
// (symbol, day): re-analysis on the same calendar day updates the existing
// row rather than creating a duplicate.
type Store interface {
	Upsert(ctx context.Context, record *SignalRecord) error
	Find(ctx context.Context, filter Filter) ([]SignalRecord, error)
	Aggregate(ctx context.Context, query AggregateQuery) ([]AggregateRow, error)
}
