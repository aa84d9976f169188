package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultChartBaseURL = "https://query1.finance.yahoo.com"

// YahooClient fetches bar history and quotes from the Yahoo Finance chart API
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewYahooClient creates a client against the public chart endpoint
func NewYahooClient() *YahooClient {
	return &YahooClient{
		baseURL:    defaultChartBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewYahooClientWithBaseURL creates a client against a custom endpoint,
// used by tests and proxies
func NewYahooClientWithBaseURL(baseURL string) *YahooClient {
	c := NewYahooClient()
	c.baseURL = baseURL
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string  `json:"symbol"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				RegularMarketVolume  float64 `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory requests the chart for a symbol and converts it to bars.
// Bars with missing fields (halted or partial sessions) are skipped; price
// arrays shorter than the timestamp list truncate the series rather than
// fault.
func (c *YahooClient) FetchHistory(ctx context.Context, symbol string, rng Range, interval Interval) ([]Bar, error) {
	body, err := c.fetchChart(ctx, symbol, rng, interval)
	if err != nil {
		return nil, err
	}

	result := body.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	for _, series := range [][]*float64{quote.Open, quote.High, quote.Low, quote.Close, quote.Volume} {
		if len(series) < n {
			n = len(series)
		}
	}

	bars := make([]Bar, 0, n)
	for i, ts := range result.Timestamp[:n] {
		if quote.Open[i] == nil || quote.High[i] == nil ||
			quote.Low[i] == nil || quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		bars = append(bars, Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: *quote.Volume[i],
		})
	}
	return bars, nil
}

// FetchQuote reads the live snapshot out of the chart metadata
func (c *YahooClient) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	body, err := c.fetchChart(ctx, symbol, Range1M, IntervalDaily)
	if err != nil {
		return nil, err
	}

	meta := body.Chart.Result[0].Meta
	return &Quote{
		Symbol:  meta.Symbol,
		Price:   meta.RegularMarketPrice,
		DayHigh: meta.RegularMarketDayHigh,
		DayLow:  meta.RegularMarketDayLow,
		Volume:  meta.RegularMarketVolume,
	}, nil
}

func (c *YahooClient) fetchChart(ctx context.Context, symbol string, rng Range, interval Interval) (*chartResponse, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s", c.baseURL, symbol, rng, interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request for %s: %w", symbol, err)
	}
	// The chart endpoint rejects the default Go user agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; signal-engine/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chart response for %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart request for %s returned %d: %s", symbol, resp.StatusCode, string(data))
	}

	var body chartResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("parse chart response for %s: %w", symbol, err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart result for %s", symbol)
	}
	return &body, nil
}
