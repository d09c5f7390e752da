package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-analyst/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// AlpacaProvider implements MarketDataProvider on top of the Alpaca
// market data API.
type AlpacaProvider struct {
	tradeClient *alpaca.Client
	dataClient  *marketdata.Client
}

// NewAlpacaProvider creates a new AlpacaProvider instance.
func NewAlpacaProvider(apiKey, apiSecret, baseURL string) *AlpacaProvider {
	tradeClient := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaProvider{
		tradeClient: tradeClient,
		dataClient:  dataClient,
	}
}

// FetchCurrent returns live quote data for ticker. Alpaca does not expose
// market cap or P/E, so those fields stay unset.
func (p *AlpacaProvider) FetchCurrent(ctx context.Context, ticker string) (*models.CurrentData, error) {
	snapshot, err := p.dataClient.GetSnapshot(ticker, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", ticker, err)
	}
	if snapshot == nil || snapshot.LatestTrade == nil || snapshot.DailyBar == nil {
		return nil, fmt.Errorf("no data found for ticker %s", ticker)
	}

	companyName := ticker
	if asset, err := p.tradeClient.GetAsset(ticker); err == nil && asset.Name != "" {
		companyName = asset.Name
	}

	current := &models.CurrentData{
		Ticker:       ticker,
		CompanyName:  companyName,
		CurrentPrice: decimal.NewFromFloat(snapshot.LatestTrade.Price),
		DailyHigh:    decimal.NewFromFloat(snapshot.DailyBar.High),
		DailyLow:     decimal.NewFromFloat(snapshot.DailyBar.Low),
		OpenPrice:    decimal.NewFromFloat(snapshot.DailyBar.Open),
		Volume:       int64(snapshot.DailyBar.Volume),
		Timestamp:    time.Now().UTC(),
	}
	if snapshot.PrevDailyBar != nil {
		current.PreviousClose = decimal.NewFromFloat(snapshot.PrevDailyBar.Close)
	}
	return current, nil
}

// FetchHistory returns daily bars for ticker covering the given number of
// months, oldest first.
func (p *AlpacaProvider) FetchHistory(ctx context.Context, ticker string, months int) ([]models.PricePoint, error) {
	end := time.Now()
	start := end.AddDate(0, -months, 0)

	bars, err := p.dataClient.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get bars for %s: %w", ticker, err)
	}

	history := make([]models.PricePoint, 0, len(bars))
	for _, bar := range bars {
		history = append(history, models.PricePoint{
			Date:   bar.Timestamp,
			Open:   decimal.NewFromFloat(bar.Open),
			Close:  decimal.NewFromFloat(bar.Close),
			High:   decimal.NewFromFloat(bar.High),
			Low:    decimal.NewFromFloat(bar.Low),
			Volume: int64(bar.Volume),
		})
	}
	return history, nil
}

// ValidateTicker reports whether Alpaca knows ticker as a tradable asset.
func (p *AlpacaProvider) ValidateTicker(ctx context.Context, ticker string) (bool, error) {
	asset, err := p.tradeClient.GetAsset(ticker)
	if err != nil {
		// Unknown assets come back as API errors; treat them as a
		// negative validation result rather than a provider failure.
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up asset %s: %w", ticker, err)
	}
	return asset != nil && asset.Tradable, nil
}
