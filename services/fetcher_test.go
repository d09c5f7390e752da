package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stock-analyst/models"
)

// fakeProvider is an in-memory MarketDataProvider for fetcher tests.
type fakeProvider struct {
	current      *models.CurrentData
	history      []models.PricePoint
	valid        bool
	err          error
	failuresLeft int

	currentCalls  int
	historyCalls  int
	validateCalls int
}

func (p *fakeProvider) FetchCurrent(ctx context.Context, ticker string) (*models.CurrentData, error) {
	p.currentCalls++
	if p.failuresLeft > 0 {
		p.failuresLeft--
		return nil, errors.New("transient provider error")
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.current, nil
}

func (p *fakeProvider) FetchHistory(ctx context.Context, ticker string, months int) ([]models.PricePoint, error) {
	p.historyCalls++
	if p.err != nil {
		return nil, p.err
	}
	return p.history, nil
}

func (p *fakeProvider) ValidateTicker(ctx context.Context, ticker string) (bool, error) {
	p.validateCalls++
	if p.err != nil {
		return false, p.err
	}
	return p.valid, nil
}

func fakeCurrent(ticker string, price float64) *models.CurrentData {
	d := decimal.NewFromFloat(price)
	return &models.CurrentData{
		Ticker:       ticker,
		CompanyName:  ticker + " Inc.",
		CurrentPrice: d,
		DailyHigh:    d.Add(decimal.NewFromInt(1)),
		DailyLow:     d.Sub(decimal.NewFromInt(1)),
		Volume:       1_000_000,
		Timestamp:    time.Now(),
	}
}

func fakeHistory(days int, close float64) []models.PricePoint {
	points := make([]models.PricePoint, days)
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	d := decimal.NewFromFloat(close)
	for i := range points {
		points[i] = models.PricePoint{
			Date:   base.AddDate(0, 0, i),
			Open:   d,
			Close:  d,
			High:   d,
			Low:    d,
			Volume: 500_000,
		}
	}
	return points
}

func testFetcher(provider MarketDataProvider) (*Fetcher, *TTLCache, *CircuitBreaker) {
	cache := NewTTLCache(time.Minute)
	breaker := NewCircuitBreaker("test-provider", 5, time.Minute)
	config := FetcherConfig{
		CurrentTTL:    5 * time.Minute,
		HistoryTTL:    time.Hour,
		ValidationTTL: 24 * time.Hour,
		HistoryMonths: 6,
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     10 * time.Millisecond,
		},
	}
	return NewFetcher(provider, cache, breaker, config), cache, breaker
}

func TestFetcher_CurrentCachesResult(t *testing.T) {
	provider := &fakeProvider{current: fakeCurrent("AAPL", 150)}
	fetcher, _, _ := testFetcher(provider)
	ctx := context.Background()

	data, meta, err := fetcher.Current(ctx, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.FromCache {
		t.Error("expected first fetch to come from the provider")
	}
	if data.Ticker != "AAPL" {
		t.Errorf("expected ticker AAPL, got %s", data.Ticker)
	}

	_, meta, err = fetcher.Current(ctx, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !meta.FromCache {
		t.Error("expected second fetch to be served from cache")
	}
	if provider.currentCalls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.currentCalls)
	}
}

func TestFetcher_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{
		current:      fakeCurrent("AAPL", 150),
		failuresLeft: 2,
	}
	fetcher, _, breaker := testFetcher(provider)

	data, _, err := fetcher.Current(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if data == nil {
		t.Fatal("expected data")
	}
	if provider.currentCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", provider.currentCalls)
	}

	// Two failures then one success: the success decrements the count
	if breaker.Status().FailureCount != 1 {
		t.Errorf("expected failure count 1 after 2 failures and 1 success, got %d",
			breaker.Status().FailureCount)
	}
}

func TestFetcher_StaleFallbackAfterExhaustedRetries(t *testing.T) {
	provider := &fakeProvider{current: fakeCurrent("AAPL", 150)}
	fetcher, cache, _ := testFetcher(provider)
	ctx := context.Background()

	// Prime the cache, then expire the live entry
	if _, _, err := fetcher.Current(ctx, "AAPL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Clear()
	cache.Set(CacheKey(opCurrentData, "AAPL"), provider.current, -time.Second)

	provider.err = errors.New("provider down")

	data, meta, err := fetcher.Current(ctx, "AAPL")
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if !meta.Stale {
		t.Error("expected result to be flagged stale")
	}
	if !meta.FromCache {
		t.Error("expected result to be flagged from cache")
	}
	if data.Ticker != "AAPL" {
		t.Errorf("expected stale AAPL data, got %s", data.Ticker)
	}
}

func TestFetcher_ErrorWhenNoStaleData(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	fetcher, _, _ := testFetcher(provider)

	_, _, err := fetcher.Current(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error with no cached fallback")
	}
	if provider.currentCalls != 3 {
		t.Errorf("expected all retry attempts, got %d", provider.currentCalls)
	}
}

func TestFetcher_BreakerOpenServesStale(t *testing.T) {
	provider := &fakeProvider{current: fakeCurrent("AAPL", 150)}
	fetcher, cache, breaker := testFetcher(provider)
	ctx := context.Background()

	// Prime the last-good slot with an already expired entry
	cache.Set(CacheKey(opCurrentData, "AAPL"), provider.current, -time.Second)

	for i := 0; i < 5; i++ {
		breaker.RecordFailure()
	}
	if breaker.State() != BreakerOpen {
		t.Fatal("expected breaker to be open")
	}

	data, meta, err := fetcher.Current(ctx, "AAPL")
	if err != nil {
		t.Fatalf("expected stale data with breaker open, got: %v", err)
	}
	if !meta.Stale {
		t.Error("expected stale flag")
	}
	if data.Ticker != "AAPL" {
		t.Errorf("expected AAPL, got %s", data.Ticker)
	}
	if provider.currentCalls != 0 {
		t.Errorf("expected no provider calls with breaker open, got %d", provider.currentCalls)
	}
}

func TestFetcher_BreakerOpenNoStaleFails(t *testing.T) {
	provider := &fakeProvider{current: fakeCurrent("AAPL", 150)}
	fetcher, _, breaker := testFetcher(provider)

	for i := 0; i < 5; i++ {
		breaker.RecordFailure()
	}

	_, _, err := fetcher.Current(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got: %v", err)
	}
	if provider.currentCalls != 0 {
		t.Errorf("expected no provider calls, got %d", provider.currentCalls)
	}
}

func TestFetcher_ValidateTickerNegativeIsCached(t *testing.T) {
	provider := &fakeProvider{valid: false}
	fetcher, _, breaker := testFetcher(provider)
	ctx := context.Background()

	valid, err := fetcher.ValidateTicker(ctx, "NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid {
		t.Error("expected ticker to be invalid")
	}

	// A definitive "no" is a successful provider call: cached, no breaker
	// failure recorded.
	valid, err = fetcher.ValidateTicker(ctx, "NOPE")
	if err != nil || valid {
		t.Errorf("expected cached negative result, got valid=%v err=%v", valid, err)
	}
	if provider.validateCalls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.validateCalls)
	}
	if breaker.Status().FailureCount != 0 {
		t.Errorf("expected no breaker failures, got %d", breaker.Status().FailureCount)
	}
}

func TestFetcher_SnapshotAssemblesData(t *testing.T) {
	provider := &fakeProvider{
		current: fakeCurrent("AAPL", 150),
		history: fakeHistory(30, 148),
	}
	fetcher, _, _ := testFetcher(provider)

	snapshot, meta, err := fetcher.Snapshot(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Ticker != "AAPL" {
		t.Errorf("expected ticker AAPL, got %s", snapshot.Ticker)
	}
	if len(snapshot.History) != 30 {
		t.Errorf("expected 30 history points, got %d", len(snapshot.History))
	}
	if meta.FromCache {
		t.Error("expected fresh snapshot not to be flagged from cache")
	}
	if err := snapshot.Validate(); err != nil {
		t.Errorf("expected valid snapshot: %v", err)
	}
}

func TestFetcher_SnapshotEmptyHistory(t *testing.T) {
	provider := &fakeProvider{
		current: fakeCurrent("NEWCO", 10),
		history: nil,
	}
	fetcher, _, _ := testFetcher(provider)

	_, _, err := fetcher.Snapshot(context.Background(), "NEWCO")
	if !errors.Is(err, models.ErrNoHistoricalData) {
		t.Errorf("expected ErrNoHistoricalData, got: %v", err)
	}
}

func TestFetcher_SnapshotFromCacheWhenBothCached(t *testing.T) {
	provider := &fakeProvider{
		current: fakeCurrent("AAPL", 150),
		history: fakeHistory(30, 148),
	}
	fetcher, _, _ := testFetcher(provider)
	ctx := context.Background()

	if _, _, err := fetcher.Snapshot(ctx, "AAPL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, meta, err := fetcher.Snapshot(ctx, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !meta.FromCache {
		t.Error("expected snapshot to be served from cache")
	}
	if provider.currentCalls != 1 || provider.historyCalls != 1 {
		t.Errorf("expected 1 call each, got current=%d history=%d",
			provider.currentCalls, provider.historyCalls)
	}
}
