package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	in := payload{Symbol: "AAPL", Price: 187.5}
	if err := c.SetJSON(ctx, QuoteKey("AAPL"), in, time.Minute); err != nil {
		t.Fatal(err)
	}

	var out payload
	if err := c.GetJSON(ctx, QuoteKey("AAPL"), &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	var out payload
	err := NewMemoryCache().GetJSON(context.Background(), "absent", &out)
	if !errors.Is(err, ErrMiss) {
		t.Errorf("Expected ErrMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	now := time.Now()
	c.now = func() time.Time { return now }

	if err := c.SetJSON(ctx, "k", payload{Symbol: "X"}, time.Minute); err != nil {
		t.Fatal(err)
	}

	var out payload
	if err := c.GetJSON(ctx, "k", &out); err != nil {
		t.Fatalf("Expected hit before expiry, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := c.GetJSON(ctx, "k", &out); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected ErrMiss after expiry, got %v", err)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	c.SetJSON(ctx, "k", payload{Symbol: "X"}, time.Minute)
	c.Delete(ctx, "k")

	var out payload
	if err := c.GetJSON(ctx, "k", &out); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected ErrMiss after delete, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	if got := HistoryKey("MSFT", "1y", "1d"); got != "history:MSFT:1y:1d" {
		t.Errorf("HistoryKey = %s", got)
	}
	if got := ProbabilityKey("abc123def456"); got != "probability:abc123def456" {
		t.Errorf("ProbabilityKey = %s", got)
	}
}
