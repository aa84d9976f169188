// Package cache provides short-lived caching for market history and
// probability lookups, with a Redis backend for shared deployments and an
// in-process fallback.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned when a key is absent or expired. Callers fall back to
// the underlying provider and repopulate.
var ErrMiss = errors.New("cache miss")

// Key prefixes for the cache types the engine stores
const (
	PrefixHistory     = "history:%s:%s:%s" // symbol, range, interval
	PrefixQuote       = "quote:%s"
	PrefixProbability = "probability:%s" // condition hash
	PrefixCalibration = "calibration:report"
)

// Default TTLs. History is daily bars so a long TTL is safe; quotes go stale
// fast.
const (
	DefaultHistoryTTL     = 1 * time.Hour
	DefaultQuoteTTL       = 30 * time.Second
	DefaultProbabilityTTL = 15 * time.Minute
	DefaultCalibrationTTL = 6 * time.Hour
)

// Cache stores JSON-encoded values under string keys with per-entry TTLs
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// HistoryKey builds the cache key for a symbol's bar history
func HistoryKey(symbol, rng, interval string) string {
	return fmt.Sprintf(PrefixHistory, symbol, rng, interval)
}

// QuoteKey builds the cache key for a symbol's latest quote
func QuoteKey(symbol string) string {
	return fmt.Sprintf(PrefixQuote, symbol)
}

// ProbabilityKey builds the cache key for a condition hash lookup
func ProbabilityKey(hash string) string {
	return fmt.Sprintf(PrefixProbability, hash)
}
