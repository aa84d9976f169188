package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stock-signal-engine/internal/market"
)

// Resolver settles PENDING signals from later bars. Resolution is lazy: it
// runs when a symbol is next analyzed, not on a schedule, so staleness is
// bounded by re-analysis frequency plus the hard expiry.
type Resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver creates a resolver over the given store
func NewResolver(store Store, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// ResolveSymbol settles every pending record for the symbol against bars
// newer than each signal's date. Returns how many records reached a terminal
// state.
func (r *Resolver) ResolveSymbol(ctx context.Context, symbol string, bars []market.Bar) (int, error) {
	pending, err := r.store.Find(ctx, Filter{Symbol: symbol, Statuses: []string{StatusPending}})
	if err != nil {
		return 0, fmt.Errorf("find pending signals: %w", err)
	}

	resolved := 0
	for i := range pending {
		record := pending[i]
		if !resolveRecord(&record, bars) {
			continue
		}
		if err := r.store.Upsert(ctx, &record); err != nil {
			// A failed write must not abort the scan; the record stays
			// pending and is retried on the next analysis
			r.logger.Error().Err(err).
				Str("symbol", record.Symbol).
				Time("signal_date", record.Date).
				Msg("failed to persist signal resolution")
			continue
		}
		resolved++
		r.logger.Debug().
			Str("symbol", record.Symbol).
			Str("status", record.Status).
			Time("signal_date", record.Date).
			Msg("signal resolved")
	}
	return resolved, nil
}

// resolveRecord walks bars after the signal date looking for a terminal
// outcome. Within a single bar the stop is checked before the target: when
// both levels trade on the same day the conservative read wins.
func resolveRecord(record *SignalRecord, bars []market.Bar) bool {
	signalDay := Day(record.Date)
	expiry := signalDay.AddDate(0, 0, ExpiryDays)

	for _, bar := range bars {
		if !Day(bar.Date).After(signalDay) {
			continue
		}

		if Day(bar.Date).After(expiry) {
			finalize(record, StatusExpired, bar.Date, bar.Close)
			return true
		}

		switch record.Direction {
		case DirectionBuy:
			if record.StopLoss > 0 && bar.Low <= record.StopLoss {
				finalize(record, StatusStopHit, bar.Date, record.StopLoss)
				return true
			}
			if record.TargetPrice > 0 && bar.High >= record.TargetPrice {
				finalize(record, StatusTargetHit, bar.Date, record.TargetPrice)
				return true
			}
		case DirectionSell:
			if record.StopLoss > 0 && bar.High >= record.StopLoss {
				finalize(record, StatusStopHit, bar.Date, record.StopLoss)
				return true
			}
			if record.TargetPrice > 0 && bar.Low <= record.TargetPrice {
				finalize(record, StatusTargetHit, bar.Date, record.TargetPrice)
				return true
			}
		}
	}

	// No level was hit: expire once the window has fully elapsed
	if len(bars) > 0 {
		last := bars[len(bars)-1]
		if !Day(last.Date).Before(expiry) {
			finalize(record, StatusExpired, last.Date, last.Close)
			return true
		}
	}
	return false
}

func finalize(record *SignalRecord, status string, outcomeDate time.Time, outcomePrice float64) {
	record.Status = status
	day := Day(outcomeDate)
	record.OutcomeDate = &day
	record.OutcomePrice = &outcomePrice

	if record.EntryPrice > 0 {
		pnl := (outcomePrice - record.EntryPrice) / record.EntryPrice * 100
		if record.Direction == DirectionSell {
			pnl = -pnl
		}
		record.PnLPercent = &pnl
	}

	days := int(day.Sub(Day(record.Date)).Hours() / 24)
	record.DaysToOutcome = &days
}
