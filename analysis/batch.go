package analysis

import (
	"context"
	"sync"

	"stock-analyst/models"
	"stock-analyst/observability"
)

// Analyzer runs the analysis pipeline for a single ticker.
type Analyzer interface {
	Analyze(ctx context.Context, ticker string) (*models.AnalysisResult, error)
}

// BatchItem is the outcome of one ticker in a batch run. Exactly one of
// Result and Error is set.
type BatchItem struct {
	Ticker string                 `json:"ticker"`
	Result *models.AnalysisResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// BatchAnalyzer fans a list of tickers out over a bounded worker pool.
// Per-ticker failures are reported in their slot; they never abort the
// rest of the batch.
type BatchAnalyzer struct {
	analyzer      Analyzer
	maxConcurrent int
}

// NewBatchAnalyzer creates a BatchAnalyzer with the given concurrency
// bound. A non-positive bound runs one ticker at a time.
func NewBatchAnalyzer(analyzer Analyzer, maxConcurrent int) *BatchAnalyzer {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &BatchAnalyzer{
		analyzer:      analyzer,
		maxConcurrent: maxConcurrent,
	}
}

// AnalyzeAll analyzes every ticker and returns the outcomes in input
// order. Cancelling ctx marks the not-yet-started tickers as failed.
func (b *BatchAnalyzer) AnalyzeAll(ctx context.Context, tickers []string) []BatchItem {
	items := make([]BatchItem, len(tickers))
	sem := make(chan struct{}, b.maxConcurrent)
	var wg sync.WaitGroup

	for i, ticker := range tickers {
		wg.Add(1)
		go func(idx int, ticker string) {
			defer wg.Done()
			items[idx].Ticker = ticker

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				items[idx].Error = ctx.Err().Error()
				return
			}

			result, err := b.analyzer.Analyze(ctx, ticker)
			if err != nil {
				observability.WithTicker(ticker).Warn("batch analysis item failed", "error", err)
				items[idx].Error = err.Error()
				return
			}
			items[idx].Result = result
		}(i, ticker)
	}

	wg.Wait()
	return items
}
