package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"stock-analyst/models"
	"stock-analyst/observability"
	"stock-analyst/services"
)

// tickerPattern accepts 1-10 characters of letters, digits, dots and
// dashes. Malformed tickers short-circuit before any network call.
var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9.\-]{1,10}$`)

// AuditStore persists completed analyses. Implementations must tolerate
// being called concurrently; a nil store disables auditing.
type AuditStore interface {
	SaveAnalysis(ctx context.Context, result *models.AnalysisResult) error
}

// Orchestrator sequences the full analysis pipeline: fetch snapshot,
// run the technical and fundamental analyzers, call the recommendation
// generator and extract its response into the final result.
type Orchestrator struct {
	fetcher   *services.Fetcher
	generator services.TextGenerator
	audit     AuditStore
	timeout   time.Duration
}

// NewOrchestrator creates an Orchestrator. generator may be nil (every
// request then degrades to a Hold recommendation); audit may be nil.
func NewOrchestrator(fetcher *services.Fetcher, generator services.TextGenerator, audit AuditStore, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		generator: generator,
		audit:     audit,
		timeout:   timeout,
	}
}

// Analyze produces a complete AnalysisResult for ticker. Failures before
// the recommendation call abort with a typed error; a failing
// recommendation call or extraction degrades to a conservative Hold
// instead, because partial analysis is preferred to no analysis.
func (o *Orchestrator) Analyze(ctx context.Context, ticker string) (*models.AnalysisResult, error) {
	start := time.Now()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(ticker) {
		observability.GetMetrics().RecordAnalysisError("invalid_ticker")
		return nil, models.NewStageError(ticker, "validation", models.ErrInvalidTicker)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	log := observability.WithTicker(ticker)

	snapshot, meta, err := o.fetcher.Snapshot(ctx, ticker)
	if err != nil {
		err = o.classify(ctx, ticker, "fetch", err)
		log.Error("failed to fetch market data", "error", err)
		return nil, err
	}

	// Technical and fundamental analysis read the same immutable
	// snapshot and can run concurrently.
	technicalCh := make(chan *models.TechnicalIndicators, 1)
	go func() {
		technicalCh <- AnalyzeTechnical(snapshot)
	}()
	fundamental := AnalyzeFundamental(snapshot)
	technical := <-technicalCh

	recommendation, summary := o.recommend(ctx, ticker, snapshot, technical, fundamental)
	if ctx.Err() != nil {
		err = o.classify(ctx, ticker, "recommendation", ctx.Err())
		return nil, err
	}
	if summary == "" {
		summary = composeSummary(snapshot, technical, fundamental, recommendation)
	}

	result := &models.AnalysisResult{
		ID:               uuid.New(),
		Ticker:           ticker,
		CompanyName:      snapshot.CompanyName,
		Snapshot:         snapshot,
		Technical:        technical,
		Fundamental:      fundamental,
		Recommendation:   recommendation,
		Summary:          summary,
		FromCache:        meta.FromCache,
		Stale:            meta.Stale,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}

	metrics := observability.GetMetrics()
	metrics.RecordAnalysis(ticker, "success", time.Since(start))
	metrics.RecordRecommendation(string(recommendation.Type), recommendation.ConfidenceScore, recommendation.Degraded)

	if o.audit != nil {
		if err := o.audit.SaveAnalysis(ctx, result); err != nil {
			log.Warn("failed to persist analysis audit record", "error", err)
		}
	}

	log.Info("completed analysis",
		"recommendation", recommendation.Type,
		"confidence", recommendation.ConfidenceScore,
		"degraded", recommendation.Degraded,
		"processing_ms", result.ProcessingTimeMs)
	return result, nil
}

// recommend calls the text generator and extracts its response. Any
// failure here degrades rather than aborts.
func (o *Orchestrator) recommend(ctx context.Context, ticker string, snapshot *models.MarketSnapshot, technical *models.TechnicalIndicators, fundamental *models.FundamentalSignals) (*models.Recommendation, string) {
	if o.generator == nil {
		return DegradedRecommendation("recommendation service not configured"), ""
	}

	prompt := BuildRecommendationPrompt(snapshot, technical, fundamental)
	text, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		observability.WithTicker(ticker).Warn("recommendation generation failed, degrading", "error", err)
		observability.GetMetrics().RecordAnalysisError("recommendation_degraded")
		return DegradedRecommendation(err.Error()), ""
	}

	extraction := ExtractRecommendation(text)
	return extraction.Recommendation, extraction.Summary
}

// classify maps raw pipeline errors onto the failure taxonomy, wrapping
// them with ticker and stage context.
func (o *Orchestrator) classify(ctx context.Context, ticker, stage string, err error) error {
	metrics := observability.GetMetrics()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.RecordAnalysisError("timeout")
		return models.NewStageError(ticker, stage, fmt.Errorf("%w: %v", models.ErrAnalysisTimeout, err))
	case errors.Is(err, models.ErrProviderUnavailable):
		metrics.RecordAnalysisError("provider_unavailable")
		return models.NewStageError(ticker, stage, err)
	case errors.Is(err, models.ErrNoHistoricalData):
		metrics.RecordAnalysisError("no_historical_data")
		return models.NewStageError(ticker, stage, err)
	default:
		metrics.RecordAnalysisError("internal")
		return models.NewStageError(ticker, stage, err)
	}
}

// composeSummary builds a deterministic summary when the generator did
// not supply one.
func composeSummary(snapshot *models.MarketSnapshot, technical *models.TechnicalIndicators, fundamental *models.FundamentalSignals, rec *models.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): $%s (%+.2f%%). ",
		snapshot.CompanyName, snapshot.Ticker,
		snapshot.CurrentPrice.StringFixed(2), fundamental.PriceChangePct)

	if len(technical.Signals) > 0 {
		fmt.Fprintf(&b, "Technical: %s. ", strings.Join(technical.Signals[:min(2, len(technical.Signals))], ", "))
	} else {
		b.WriteString("Technical: neutral signals. ")
	}

	fmt.Fprintf(&b, "Valuation: %s. ", strings.ReplaceAll(string(fundamental.Valuation), "_", " "))
	fmt.Fprintf(&b, "Recommendation: %s (confidence %.0f%%).", rec.Type, rec.ConfidenceScore)
	return b.String()
}
