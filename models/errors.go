package models

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the analysis pipeline. Callers match these with
// errors.Is; StageError adds ticker and stage context on the way up.
var (
	// ErrInvalidTicker indicates a malformed ticker symbol. Fatal, no retry.
	ErrInvalidTicker = errors.New("invalid ticker format")

	// ErrProviderUnavailable indicates the data provider's circuit breaker is
	// open (or retries exhausted) and no stale fallback exists. Retryable later.
	ErrProviderUnavailable = errors.New("market data provider unavailable")

	// ErrNoHistoricalData indicates a valid ticker with an empty or
	// insufficient price series. Fatal for the request.
	ErrNoHistoricalData = errors.New("no historical data")

	// ErrAnalysisTimeout indicates the overall request deadline was exceeded.
	ErrAnalysisTimeout = errors.New("analysis timed out")
)

// StageError wraps a pipeline failure with the ticker and stage it
// originated from.
type StageError struct {
	Ticker string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("analysis of %s failed at %s: %v", e.Ticker, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with ticker and stage context.
func NewStageError(ticker, stage string, err error) *StageError {
	return &StageError{Ticker: ticker, Stage: stage, Err: err}
}
