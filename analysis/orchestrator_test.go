package analysis

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stock-analyst/models"
	"stock-analyst/services"
)

// stubProvider is an in-memory services.MarketDataProvider.
type stubProvider struct {
	current *models.CurrentData
	history []models.PricePoint
	err     error
}

func (p *stubProvider) FetchCurrent(ctx context.Context, ticker string) (*models.CurrentData, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.current, nil
}

func (p *stubProvider) FetchHistory(ctx context.Context, ticker string, months int) ([]models.PricePoint, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.history, nil
}

func (p *stubProvider) ValidateTicker(ctx context.Context, ticker string) (bool, error) {
	return p.err == nil, p.err
}

// stubGenerator returns a canned response or error.
type stubGenerator struct {
	response string
	err      error
	delay    time.Duration

	mu      sync.Mutex
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.delay):
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

// stubAudit records saved results.
type stubAudit struct {
	mu      sync.Mutex
	results []*models.AnalysisResult
	err     error
}

func (a *stubAudit) SaveAnalysis(ctx context.Context, result *models.AnalysisResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
	return a.err
}

func stubCurrent(ticker string, price float64) *models.CurrentData {
	d := decimal.NewFromFloat(price)
	return &models.CurrentData{
		Ticker:       ticker,
		CompanyName:  ticker + " Inc.",
		CurrentPrice: d,
		DailyHigh:    d.Add(decimal.NewFromInt(2)),
		DailyLow:     d.Sub(decimal.NewFromInt(2)),
		Volume:       1_200_000,
		Timestamp:    time.Now(),
	}
}

func newTestOrchestrator(provider services.MarketDataProvider, generator services.TextGenerator, audit AuditStore, timeout time.Duration) *Orchestrator {
	cache := services.NewTTLCache(time.Minute)
	breaker := services.NewCircuitBreaker("test-provider", 5, time.Minute)
	fetcher := services.NewFetcher(provider, cache, breaker, services.FetcherConfig{
		CurrentTTL:    5 * time.Minute,
		HistoryTTL:    time.Hour,
		ValidationTTL: 24 * time.Hour,
		HistoryMonths: 6,
		Retry: services.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	})
	return NewOrchestrator(fetcher, generator, audit, timeout)
}

func TestOrchestrator_Analyze(t *testing.T) {
	provider := &stubProvider{
		current: stubCurrent("AAPL", 150),
		history: flatHistory(60, 148),
	}
	generator := &stubGenerator{response: wellFormedResponse}
	audit := &stubAudit{}
	o := newTestOrchestrator(provider, generator, audit, time.Minute)

	result, err := o.Analyze(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Ticker != "AAPL" {
		t.Errorf("expected ticker normalized to AAPL, got %s", result.Ticker)
	}
	if result.Recommendation.Type != models.RecommendationBuy {
		t.Errorf("expected Buy from the generator response, got %s", result.Recommendation.Type)
	}
	if result.Recommendation.Degraded {
		t.Errorf("expected clean recommendation, degraded: %v", result.Recommendation.DegradedFields)
	}
	if result.Technical == nil || result.Fundamental == nil {
		t.Fatal("expected both analyzers to run")
	}

	// Current 150 against a last close of 148
	want := (150.0 - 148.0) / 148.0 * 100
	if math.Abs(result.Fundamental.PriceChangePct-want) > 0.001 {
		t.Errorf("expected price change %.4f%%, got %.4f%%", want, result.Fundamental.PriceChangePct)
	}

	if result.Summary == "" {
		t.Error("expected non-empty summary")
	}
	if len(generator.prompts) != 1 {
		t.Fatalf("expected one generator call, got %d", len(generator.prompts))
	}
	if len(audit.results) != 1 {
		t.Errorf("expected one audit record, got %d", len(audit.results))
	}
}

func TestOrchestrator_InvalidTicker(t *testing.T) {
	o := newTestOrchestrator(&stubProvider{}, nil, nil, time.Minute)

	tests := []string{"", "TOOLONGTICKER", "BAD TICKER", "A$PL"}
	for _, ticker := range tests {
		_, err := o.Analyze(context.Background(), ticker)
		if !errors.Is(err, models.ErrInvalidTicker) {
			t.Errorf("ticker %q: expected ErrInvalidTicker, got %v", ticker, err)
		}
	}
}

func TestOrchestrator_ProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("provider exploded")}
	o := newTestOrchestrator(provider, nil, nil, time.Minute)

	_, err := o.Analyze(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error when the provider is down with no cache")
	}

	var stageErr *models.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T: %v", err, err)
	}
	if stageErr.Stage != "fetch" {
		t.Errorf("expected fetch stage, got %s", stageErr.Stage)
	}
}

func TestOrchestrator_NoHistoricalData(t *testing.T) {
	provider := &stubProvider{
		current: stubCurrent("NEWCO", 10),
		history: nil,
	}
	o := newTestOrchestrator(provider, nil, nil, time.Minute)

	_, err := o.Analyze(context.Background(), "NEWCO")
	if !errors.Is(err, models.ErrNoHistoricalData) {
		t.Errorf("expected ErrNoHistoricalData, got %v", err)
	}
}

func TestOrchestrator_GeneratorFailureDegrades(t *testing.T) {
	provider := &stubProvider{
		current: stubCurrent("AAPL", 150),
		history: flatHistory(60, 148),
	}
	generator := &stubGenerator{err: errors.New("model unavailable")}
	o := newTestOrchestrator(provider, generator, nil, time.Minute)

	result, err := o.Analyze(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("expected degraded result, not error: %v", err)
	}

	rec := result.Recommendation
	if rec.Type != models.RecommendationHold {
		t.Errorf("expected conservative Hold, got %s", rec.Type)
	}
	if rec.ConfidenceScore != 50 {
		t.Errorf("expected confidence 50, got %f", rec.ConfidenceScore)
	}
	if !rec.Degraded {
		t.Error("expected degraded flag")
	}
	// The deterministic analyzers still contribute
	if result.Technical == nil || result.Fundamental == nil {
		t.Error("expected analyzer output despite generator failure")
	}
	if result.Summary == "" {
		t.Error("expected composed fallback summary")
	}
}

func TestOrchestrator_NilGeneratorDegrades(t *testing.T) {
	provider := &stubProvider{
		current: stubCurrent("AAPL", 150),
		history: flatHistory(60, 148),
	}
	o := newTestOrchestrator(provider, nil, nil, time.Minute)

	result, err := o.Analyze(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Recommendation.Degraded {
		t.Error("expected degraded recommendation without a generator")
	}
}

func TestOrchestrator_Timeout(t *testing.T) {
	provider := &stubProvider{
		current: stubCurrent("AAPL", 150),
		history: flatHistory(60, 148),
	}
	generator := &stubGenerator{
		response: wellFormedResponse,
		delay:    200 * time.Millisecond,
	}
	o := newTestOrchestrator(provider, generator, nil, 50*time.Millisecond)

	_, err := o.Analyze(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrAnalysisTimeout) {
		t.Errorf("expected ErrAnalysisTimeout, got %v", err)
	}
}

func TestOrchestrator_AuditFailureDoesNotAbort(t *testing.T) {
	provider := &stubProvider{
		current: stubCurrent("AAPL", 150),
		history: flatHistory(60, 148),
	}
	generator := &stubGenerator{response: wellFormedResponse}
	audit := &stubAudit{err: errors.New("db down")}
	o := newTestOrchestrator(provider, generator, audit, time.Minute)

	result, err := o.Analyze(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("expected success despite audit failure, got: %v", err)
	}
	if result == nil {
		t.Fatal("expected result")
	}
}

func TestBuildRecommendationPrompt(t *testing.T) {
	snapshot := snapshotWith(flatHistory(60, 148), 150)
	technical := AnalyzeTechnical(snapshot)
	fundamental := AnalyzeFundamental(snapshot)

	prompt := BuildRecommendationPrompt(snapshot, technical, fundamental)

	for _, want := range []string{
		"TEST",
		"RECOMMENDATION:",
		"CONFIDENCE_SCORE:",
		"REASONING:",
		"KEY_FACTORS:",
		"RISK_ASSESSMENT:",
		"SUMMARY:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
}
