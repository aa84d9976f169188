package market

import (
	"context"
	"time"
)

// Bar represents a single daily OHLCV bar. Series are ordered oldest first.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote represents a live price snapshot
type Quote struct {
	Symbol  string
	Price   float64
	DayHigh float64
	DayLow  float64
	Volume  float64
}

// Range identifies how much history to request
type Range string

const (
	Range1M Range = "1mo"
	Range3M Range = "3mo"
	Range6M Range = "6mo"
	Range1Y Range = "1y"
	Range2Y Range = "2y"
	Range5Y Range = "5y"
)

// Interval identifies the bar width of requested history
type Interval string

const (
	IntervalDaily   Interval = "1d"
	IntervalWeekly  Interval = "1wk"
	IntervalMonthly Interval = "1mo"
)

// HistoryProvider fetches ordered, chronological bars for a symbol.
// Providers may return fewer bars than the range implies and the result is
// never guaranteed fresh.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, rng Range, interval Interval) ([]Bar, error)
}

// QuoteProvider fetches a live quote for a symbol
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}

// Closes extracts the close series from a bar series
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
