package conditions

import (
	"context"
	"fmt"
	"math"
	"sort"

	"stock-signal-engine/internal/ledger"
)

// Reliability thresholds for an empirical lookup
const (
	// MinReliableSample is the minimum resolved signals a hash needs before
	// its statistics are treated as predictive
	MinReliableSample = 50

	// meanSampleThreshold is where the magnitude estimator switches from the
	// outlier-resistant median to the mean
	meanSampleThreshold = 150
)

// Probability is the historical performance of one condition hash
type Probability struct {
	Hash       string
	SampleSize int
	Wins       int
	WinRate    float64 // 0-1
	AvgWin     float64 // PnL percent magnitude
	AvgLoss    float64 // PnL percent magnitude, positive
	Expectancy float64
	Reliable   bool
}

// Engine looks up empirical win rates for condition hashes from the resolved
// ledger
type Engine struct {
	store ledger.Store
}

// NewEngine creates a probability engine over the ledger store
func NewEngine(store ledger.Store) *Engine {
	return &Engine{store: store}
}

// Lookup computes the empirical probability for a condition hash from every
// resolved ledger row sharing it
func (e *Engine) Lookup(ctx context.Context, hash string) (*Probability, error) {
	records, err := e.store.Find(ctx, ledger.Filter{
		ConditionHash: hash,
		Statuses:      ledger.ResolvedStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("lookup condition hash %s: %w", hash, err)
	}

	prob := &Probability{Hash: hash, SampleSize: len(records)}
	if len(records) == 0 {
		return prob, nil
	}

	var winPnls, lossPnls []float64
	sawBuy, sawSell := false, false

	for _, rec := range records {
		switch rec.Direction {
		case ledger.DirectionBuy:
			sawBuy = true
		case ledger.DirectionSell:
			sawSell = true
		}

		if rec.Won() {
			prob.Wins++
			if rec.PnLPercent != nil {
				winPnls = append(winPnls, math.Abs(*rec.PnLPercent))
			}
		} else if rec.PnLPercent != nil {
			lossPnls = append(lossPnls, math.Abs(*rec.PnLPercent))
		}
	}

	prob.WinRate = float64(prob.Wins) / float64(prob.SampleSize)

	// Thin samples use the median so a single outsized trade cannot skew the
	// magnitude estimate; large samples use the mean
	if prob.SampleSize < meanSampleThreshold {
		prob.AvgWin = median(winPnls)
		prob.AvgLoss = median(lossPnls)
	} else {
		prob.AvgWin = mean(winPnls)
		prob.AvgLoss = mean(lossPnls)
	}

	prob.Expectancy = prob.WinRate*prob.AvgWin - (1-prob.WinRate)*prob.AvgLoss

	// A hash populated by only one direction is presumed biased by regime
	// clustering and never treated as independently predictive
	prob.Reliable = prob.SampleSize >= MinReliableSample && sawBuy && sawSell

	return prob, nil
}

// Summary returns per-hash win/loss totals across the whole resolved ledger
func (e *Engine) Summary(ctx context.Context) ([]ledger.AggregateRow, error) {
	return e.store.Aggregate(ctx, ledger.AggregateQuery{
		GroupBy:  "condition_hash",
		Statuses: ledger.ResolvedStatuses,
	})
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
