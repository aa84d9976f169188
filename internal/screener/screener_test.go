package screener

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-signal-engine/config"
	"stock-signal-engine/internal/cache"
	"stock-signal-engine/internal/conditions"
	"stock-signal-engine/internal/indicators"
	"stock-signal-engine/internal/ledger"
	"stock-signal-engine/internal/market"
)

// fakeHistory serves canned bars and tracks peak concurrency
type fakeHistory struct {
	mu          sync.Mutex
	bars        map[string][]market.Bar
	fail        map[string]bool
	inFlight    int
	maxInFlight int
}

func (f *fakeHistory) FetchHistory(_ context.Context, symbol string, _ market.Range, _ market.Interval) ([]market.Bar, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.fail[symbol] {
		return nil, fmt.Errorf("provider unavailable for %s", symbol)
	}
	return f.bars[symbol], nil
}

// trendingBars builds a smooth uptrend with a late volume surge
func trendingBars(n int) []market.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := 0; i < n; i++ {
		c := 100 * math.Pow(1.005, float64(i))
		volume := 1000.0
		if i >= n-5 {
			volume = 2500
		}
		bars[i] = market.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c / 1.002,
			High:   c * 1.002,
			Low:    c * 0.98,
			Close:  c,
			Volume: volume,
		}
	}
	return bars
}

func flatBars(n int) []market.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = market.Bar{
			Date: start.AddDate(0, 0, i), Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000,
		}
	}
	return bars
}

func testConfig(symbols []string, batchSize int) *config.Config {
	return &config.Config{
		EngineConfig: config.EngineConfig{
			HistoryRange: "1y",
			Interval:     "1d",
			WeeklyRange:  "2y",
			MonthlyRange: "5y",
			CacheHistory: true,
		},
		ScreenerConfig: config.ScreenerConfig{
			Symbols:   symbols,
			BatchSize: batchSize,
		},
	}
}

func newTestScreener(history *fakeHistory, store ledger.Store, cfg *config.Config) *Screener {
	return New(history, store, cache.NewMemoryCache(), cfg, zerolog.Nop())
}

func TestScanEmitsSignalForCleanUptrend(t *testing.T) {
	history := &fakeHistory{bars: map[string][]market.Bar{"AAPL": trendingBars(60)}}
	store := ledger.NewMemoryStore()
	s := newTestScreener(history, store, testConfig([]string{"AAPL"}, 5))

	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.RunID == "" {
		t.Error("Expected a run ID")
	}
	if len(result.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d (skipped: %v)", len(result.Results), result.Skipped)
	}

	res := result.Results[0]
	if res.Rejected {
		t.Fatalf("Expected clean uptrend to pass, rejected: %s", res.RejectReason)
	}
	if res.Direction != indicators.Bullish {
		t.Errorf("Expected bullish direction, got %s", res.Direction)
	}
	if res.SignalStrength != "strong" {
		t.Errorf("Expected strong signal, got %s", res.SignalStrength)
	}
	if res.Confidence < 85 {
		t.Errorf("Expected high confidence, got %f", res.Confidence)
	}
	if !res.Decision.ShouldTrade {
		t.Errorf("Expected tradeable decision, got %s: %s", res.Decision.Category, res.Decision.Reason)
	}
	if len(res.ConditionHash) != 12 {
		t.Errorf("Expected 12-char condition hash, got %q", res.ConditionHash)
	}
	if res.Signal == nil {
		t.Fatal("Expected a recorded signal")
	}

	records, err := store.Find(context.Background(), ledger.Filter{Symbol: "AAPL", Statuses: []string{ledger.StatusPending}})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 pending ledger record, got %d", len(records))
	}
	if records[0].Direction != ledger.DirectionBuy {
		t.Errorf("Expected BUY record, got %s", records[0].Direction)
	}
}

func TestScanLedgersNonTradeableDecision(t *testing.T) {
	// Tight intrabar ranges crush the pivot-ladder risk/reward below 1.5, so
	// the evaluator says AVOID. The decision must still land in the ledger.
	bars := trendingBars(60)
	for i := range bars {
		bars[i].Low = bars[i].Close * 0.996
	}
	history := &fakeHistory{bars: map[string][]market.Bar{"NRRW": bars}}
	store := ledger.NewMemoryStore()
	s := newTestScreener(history, store, testConfig([]string{"NRRW"}, 5))

	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d (skipped: %v)", len(result.Results), result.Skipped)
	}

	res := result.Results[0]
	if res.Rejected {
		t.Fatalf("Expected candidate to clear clarity and gates, rejected: %s", res.RejectReason)
	}
	if res.Decision.ShouldTrade {
		t.Fatalf("Expected AVOID on poor risk/reward, got %s: %s", res.Decision.Category, res.Decision.Reason)
	}
	if res.Signal == nil {
		t.Fatal("Expected the non-tradeable decision on the ledger")
	}

	records, err := store.Find(context.Background(), ledger.Filter{Symbol: "NRRW", Statuses: []string{ledger.StatusPending}})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 pending ledger record, got %d", len(records))
	}
}

func TestScanSnapshotsRawRegime(t *testing.T) {
	history := &fakeHistory{bars: map[string][]market.Bar{"AAPL": trendingBars(60)}}
	store := ledger.NewMemoryStore()
	s := newTestScreener(history, store, testConfig([]string{"AAPL"}, 5))

	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res := result.Results[0]
	if res.Signal == nil {
		t.Fatal("Expected a recorded signal")
	}

	// The snapshot keeps the 5-way regime; only the hash dimension compresses
	if res.Signal.Conditions.Regime != conditions.RegimeTrendingStrong {
		t.Errorf("Expected raw regime %s, got %s", conditions.RegimeTrendingStrong, res.Signal.Conditions.Regime)
	}
	if res.Signal.Conditions.RegimeBucket != conditions.BucketTrend {
		t.Errorf("Expected regime bucket %s, got %s", conditions.BucketTrend, res.Signal.Conditions.RegimeBucket)
	}
}

func TestScanRejectsDirectionlessSymbol(t *testing.T) {
	history := &fakeHistory{bars: map[string][]market.Bar{"FLAT": flatBars(60)}}
	store := ledger.NewMemoryStore()
	s := newTestScreener(history, store, testConfig([]string{"FLAT"}, 5))

	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(result.Results))
	}
	if !result.Results[0].Rejected {
		t.Error("Expected directionless symbol to be rejected")
	}

	records, _ := store.Find(context.Background(), ledger.Filter{Symbol: "FLAT"})
	if len(records) != 0 {
		t.Errorf("Expected no ledger writes for rejected symbol, got %d", len(records))
	}
}

func TestScanSkipsFailingSymbolAndContinues(t *testing.T) {
	history := &fakeHistory{
		bars: map[string][]market.Bar{"AAPL": trendingBars(60), "MSFT": trendingBars(60)},
		fail: map[string]bool{"BAD": true},
	}
	store := ledger.NewMemoryStore()
	s := newTestScreener(history, store, testConfig([]string{"AAPL", "BAD", "MSFT"}, 5))

	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 2 {
		t.Errorf("Expected 2 analyzed symbols, got %d", len(result.Results))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Symbol != "BAD" {
		t.Errorf("Expected BAD skipped, got %v", result.Skipped)
	}
}

func TestScanRespectsBatchSize(t *testing.T) {
	symbols := []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7"}
	bars := map[string][]market.Bar{}
	for _, sym := range symbols {
		bars[sym] = trendingBars(60)
	}
	history := &fakeHistory{bars: bars}

	cfg := testConfig(symbols, 3)
	cfg.EngineConfig.CacheHistory = false
	s := newTestScreener(history, ledger.NewMemoryStore(), cfg)

	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != len(symbols) {
		t.Fatalf("Expected %d results, got %d", len(symbols), len(result.Results))
	}
	if history.maxInFlight > 3 {
		t.Errorf("Expected at most 3 concurrent fetches, saw %d", history.maxInFlight)
	}
}

func TestScanTracksSignalAgeAcrossRuns(t *testing.T) {
	history := &fakeHistory{bars: map[string][]market.Bar{"AAPL": trendingBars(60)}}
	s := newTestScreener(history, ledger.NewMemoryStore(), testConfig([]string{"AAPL"}, 5))

	ctx := context.Background()
	if _, err := s.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if prev := s.priorSignal("AAPL"); prev == nil || prev.Age != 1 {
		t.Fatalf("Expected age 1 after first scan, got %+v", prev)
	}

	if _, err := s.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if prev := s.priorSignal("AAPL"); prev == nil || prev.Age != 2 {
		t.Errorf("Expected age 2 after second scan, got %+v", prev)
	}
}

func TestScanHonorsCancelledContext(t *testing.T) {
	history := &fakeHistory{bars: map[string][]market.Bar{"AAPL": trendingBars(60)}}
	s := newTestScreener(history, ledger.NewMemoryStore(), testConfig([]string{"AAPL"}, 5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Scan(ctx); err == nil {
		t.Error("Expected context error from cancelled scan")
	}
}

func TestClassifyRegime(t *testing.T) {
	strong := indicators.Compute(trendingBars(60))
	if got := ClassifyRegime(strong); got != "TRENDING_STRONG" {
		t.Errorf("Expected TRENDING_STRONG for steady uptrend, got %s (ADX %f)", got, strong.ADX.ADX)
	}

	flat := indicators.Compute(flatBars(60))
	if got := ClassifyRegime(flat); got != "RANGE" {
		t.Errorf("Expected RANGE for flat series, got %s", got)
	}
}
