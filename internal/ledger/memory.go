package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used in tests and single-node setups
// where Postgres is not wired
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]SignalRecord // keyed symbol|day
}

// NewMemoryStore creates an empty in-memory ledger
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]SignalRecord)}
}

func recordKey(symbol string, record *SignalRecord) string {
	return fmt.Sprintf("%s|%s", symbol, Day(record.Date).Format("2006-01-02"))
}

// Upsert inserts or replaces the (symbol, day) row
func (s *MemoryStore) Upsert(ctx context.Context, record *SignalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	stored.Date = Day(record.Date)
	s.records[recordKey(record.Symbol, record)] = stored
	return nil
}

// Find returns records matching the filter, oldest first
func (s *MemoryStore) Find(ctx context.Context, filter Filter) ([]SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SignalRecord
	for _, rec := range s.records {
		if filter.Symbol != "" && rec.Symbol != filter.Symbol {
			continue
		}
		if filter.ConditionHash != "" && rec.Conditions.Hash != filter.ConditionHash {
			continue
		}
		if !filter.Since.IsZero() && rec.Date.Before(filter.Since) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, rec.Status) {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// Aggregate groups matching rows and summarizes win counts and mean PnL
func (s *MemoryStore) Aggregate(ctx context.Context, query AggregateQuery) ([]AggregateRow, error) {
	records, err := s.Find(ctx, Filter{Statuses: query.Statuses})
	if err != nil {
		return nil, err
	}

	groups := map[string]*AggregateRow{}
	for _, rec := range records {
		key := rec.Conditions.Hash
		if query.GroupBy == "direction" {
			key = rec.Direction
		}

		row, ok := groups[key]
		if !ok {
			row = &AggregateRow{Key: key}
			groups[key] = row
		}
		row.Total++
		if rec.Won() {
			row.Wins++
		}
		if rec.PnLPercent != nil {
			row.AvgPnL += *rec.PnLPercent
		}
	}

	out := make([]AggregateRow, 0, len(groups))
	for _, row := range groups {
		if row.Total > 0 {
			row.AvgPnL /= float64(row.Total)
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
