package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"stock-analyst/models"
	"stock-analyst/observability"
)

// Operation names used for cache key derivation and metrics.
const (
	opCurrentData    = "current_data"
	opHistoricalData = "historical_data"
	opValidateTicker = "ticker_validation"
)

// FetcherConfig holds the operation-specific TTLs and retry policy for
// the resilient fetcher. Live quotes expire quickly; historical and
// validation data change rarely and are kept longer.
type FetcherConfig struct {
	CurrentTTL    time.Duration
	HistoryTTL    time.Duration
	ValidationTTL time.Duration
	HistoryMonths int
	Retry         RetryConfig
}

// DefaultFetcherConfig mirrors the provider data lifetimes: 5 minutes for
// live quotes, 1 hour for history, 24 hours for ticker validation.
var DefaultFetcherConfig = FetcherConfig{
	CurrentTTL:    5 * time.Minute,
	HistoryTTL:    1 * time.Hour,
	ValidationTTL: 24 * time.Hour,
	HistoryMonths: 6,
	Retry:         DefaultRetryConfig,
}

// FetchMeta annotates a fetch result with its provenance.
type FetchMeta struct {
	FromCache bool
	Stale     bool
	CacheAge  time.Duration
}

// Fetcher composes the TTL cache, the provider circuit breaker and
// bounded retries into best-effort market data access. Freshness (TTL),
// provider health (breaker) and per-call flakiness (retry) are handled
// by their own units; the fetcher only sequences them and falls back to
// stale data whenever a fresh fetch is not possible.
type Fetcher struct {
	provider MarketDataProvider
	cache    *TTLCache
	breaker  *CircuitBreaker
	config   FetcherConfig
}

// NewFetcher creates a Fetcher over the given provider, cache and breaker.
func NewFetcher(provider MarketDataProvider, cache *TTLCache, breaker *CircuitBreaker, config FetcherConfig) *Fetcher {
	if config.HistoryMonths <= 0 {
		config.HistoryMonths = DefaultFetcherConfig.HistoryMonths
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryConfig
	}
	return &Fetcher{
		provider: provider,
		cache:    cache,
		breaker:  breaker,
		config:   config,
	}
}

// fetchCached runs one provider operation through the full policy:
// cache lookup, breaker gate, bounded retries with per-attempt breaker
// reporting, cache store on success, stale fallback on failure.
func fetchCached[T any](ctx context.Context, f *Fetcher, op, key string, ttl time.Duration, call func() (T, error)) (T, FetchMeta, error) {
	var zero T

	if cached, ok := f.cache.Get(key); ok {
		observability.GetMetrics().RecordCacheHit(op)
		meta := FetchMeta{FromCache: true}
		if age, ok := f.cache.Age(key); ok {
			meta.CacheAge = age
		}
		return cached.(T), meta, nil
	}
	observability.GetMetrics().RecordCacheMiss(op)

	if !f.breaker.Allow() {
		observability.Warn("circuit breaker open, skipping provider call", "operation", op)
		if stale, ok := f.cache.GetStale(key); ok {
			observability.Warn("serving stale data with breaker open", "operation", op)
			return stale.(T), FetchMeta{FromCache: true, Stale: true}, nil
		}
		return zero, FetchMeta{}, fmt.Errorf("%s: %w", op, models.ErrProviderUnavailable)
	}

	var value T
	err := WithRetry(ctx, f.config.Retry, func() error {
		result, err := call()
		if err != nil {
			return err
		}
		value = result
		return nil
	}, func(attemptErr error) {
		if attemptErr != nil {
			f.breaker.RecordFailure()
			observability.GetMetrics().RecordProviderError(op)
		} else {
			f.breaker.RecordSuccess()
		}
		observability.GetMetrics().RecordProviderRequest(op)
	})
	if err != nil {
		if stale, ok := f.cache.GetStale(key); ok {
			observability.Warn("provider fetch failed, serving stale data",
				"operation", op,
				"error", err)
			return stale.(T), FetchMeta{FromCache: true, Stale: true}, nil
		}
		return zero, FetchMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	f.cache.Set(key, value, ttl)
	return value, FetchMeta{}, nil
}

// Current returns live quote data for ticker.
func (f *Fetcher) Current(ctx context.Context, ticker string) (*models.CurrentData, FetchMeta, error) {
	key := CacheKey(opCurrentData, ticker)
	return fetchCached(ctx, f, opCurrentData, key, f.config.CurrentTTL, func() (*models.CurrentData, error) {
		return f.provider.FetchCurrent(ctx, ticker)
	})
}

// History returns the ordered historical series for ticker covering the
// configured number of months.
func (f *Fetcher) History(ctx context.Context, ticker string) ([]models.PricePoint, FetchMeta, error) {
	months := f.config.HistoryMonths
	key := CacheKey(opHistoricalData, ticker, strconv.Itoa(months))
	return fetchCached(ctx, f, opHistoricalData, key, f.config.HistoryTTL, func() ([]models.PricePoint, error) {
		return f.provider.FetchHistory(ctx, ticker, months)
	})
}

// ValidateTicker reports whether the provider recognizes ticker. A
// negative answer is a valid result, not a provider failure.
func (f *Fetcher) ValidateTicker(ctx context.Context, ticker string) (bool, error) {
	key := CacheKey(opValidateTicker, ticker)
	valid, _, err := fetchCached(ctx, f, opValidateTicker, key, f.config.ValidationTTL, func() (bool, error) {
		return f.provider.ValidateTicker(ctx, ticker)
	})
	return valid, err
}

// Snapshot fetches current and historical data for ticker and assembles
// them into a MarketSnapshot. An empty history is reported as
// models.ErrNoHistoricalData.
func (f *Fetcher) Snapshot(ctx context.Context, ticker string) (*models.MarketSnapshot, FetchMeta, error) {
	current, currentMeta, err := f.Current(ctx, ticker)
	if err != nil {
		return nil, FetchMeta{}, err
	}

	history, historyMeta, err := f.History(ctx, ticker)
	if err != nil {
		return nil, FetchMeta{}, err
	}
	if len(history) == 0 {
		return nil, FetchMeta{}, fmt.Errorf("ticker %s: %w", ticker, models.ErrNoHistoricalData)
	}

	snapshot := &models.MarketSnapshot{
		Ticker:       current.Ticker,
		CompanyName:  current.CompanyName,
		CurrentPrice: current.CurrentPrice,
		DailyHigh:    current.DailyHigh,
		DailyLow:     current.DailyLow,
		Volume:       current.Volume,
		History:      history,
		MarketCap:    current.MarketCap,
		PERatio:      current.PERatio,
		Timestamp:    current.Timestamp,
	}

	meta := FetchMeta{
		FromCache: currentMeta.FromCache && historyMeta.FromCache,
		Stale:     currentMeta.Stale || historyMeta.Stale,
		CacheAge:  currentMeta.CacheAge,
	}
	return snapshot, meta, nil
}

// Cache returns the underlying TTL cache, for sweep lifecycle control.
func (f *Fetcher) Cache() *TTLCache {
	return f.cache
}

// BreakerStatus exposes the provider breaker state for health checks.
func (f *Fetcher) BreakerStatus() BreakerStatus {
	return f.breaker.Status()
}

// CacheStats exposes cache statistics for health checks.
func (f *Fetcher) CacheStats() CacheStats {
	return f.cache.Stats()
}
