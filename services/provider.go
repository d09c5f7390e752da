package services

import (
	"context"

	"stock-analyst/models"
)

// MarketDataProvider is the upstream source of market data. Calls may
// block on network I/O and may fail with provider errors; the fetcher
// wraps them with caching, retries and circuit breaking.
type MarketDataProvider interface {
	FetchCurrent(ctx context.Context, ticker string) (*models.CurrentData, error)
	FetchHistory(ctx context.Context, ticker string, months int) ([]models.PricePoint, error)
	ValidateTicker(ctx context.Context, ticker string) (bool, error)
}

// TextGenerator produces free text from a prompt. The recommendation
// extractor tolerates arbitrary output, so implementations only need to
// surface transport errors.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
