package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationType is the investment recommendation verdict.
type RecommendationType string

const (
	RecommendationBuy  RecommendationType = "Buy"
	RecommendationHold RecommendationType = "Hold"
	RecommendationSell RecommendationType = "Sell"
)

// Trend classifies the direction of a price series.
type Trend string

const (
	TrendBullish          Trend = "bullish"
	TrendBearish          Trend = "bearish"
	TrendNeutral          Trend = "neutral"
	TrendInsufficientData Trend = "insufficient_data"
)

// TechnicalIndicators holds computed technical analysis indicators.
// Derived from a snapshot's history, recomputed per request. Indicators
// that cannot be computed from the available history are left nil or
// absent from MovingAverages.
type TechnicalIndicators struct {
	MovingAverages map[int]float64 `json:"moving_averages"`
	RSI            *float64        `json:"rsi,omitempty"`
	Volatility     *float64        `json:"volatility,omitempty"`
	Trend          Trend           `json:"trend"`
	Support        *float64        `json:"support,omitempty"`
	Resistance     *float64        `json:"resistance,omitempty"`
	Signals        []string        `json:"signals"`
}

// ValuationAssessment classifies a stock's valuation from its P/E ratio.
type ValuationAssessment string

const (
	ValuationUndervalued ValuationAssessment = "undervalued"
	ValuationFair        ValuationAssessment = "fairly_valued"
	ValuationOvervalued  ValuationAssessment = "overvalued"
	ValuationUnknown     ValuationAssessment = "unknown"
)

// LiquidityScore classifies trading liquidity from average volume.
type LiquidityScore string

const (
	LiquidityHigh   LiquidityScore = "high"
	LiquidityMedium LiquidityScore = "medium"
	LiquidityLow    LiquidityScore = "low"
)

// FundamentalSignals holds valuation and liquidity classification for a
// snapshot.
type FundamentalSignals struct {
	PERatio          *float64            `json:"pe_ratio,omitempty"`
	MarketCap        *int64              `json:"market_cap,omitempty"`
	Valuation        ValuationAssessment `json:"valuation"`
	AverageVolume30d float64             `json:"average_volume_30d"`
	CurrentVolume    int64               `json:"current_volume"`
	VolumeRatio      float64             `json:"volume_ratio"`
	Liquidity        LiquidityScore      `json:"liquidity"`
	UnusualVolume    bool                `json:"unusual_volume"`
	PriceChangePct   float64             `json:"price_change_percentage"`
	Signals          []string            `json:"signals"`
}

// Recommendation is a validated investment recommendation. It is
// constructed only through the analysis extractor, which enforces every
// invariant or substitutes a safe default; it is never partially invalid.
type Recommendation struct {
	Type            RecommendationType `json:"type"`
	ConfidenceScore float64            `json:"confidence_score"`
	Reasoning       string             `json:"reasoning"`
	KeyFactors      []string           `json:"key_factors"`
	RiskAssessment  string             `json:"risk_assessment"`
	Degraded        bool               `json:"degraded"`
	DegradedFields  []string           `json:"degraded_fields,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// AnalysisResult is the complete outcome of one analysis request.
// Created once by the orchestrator and read-only afterward.
type AnalysisResult struct {
	ID               uuid.UUID            `json:"id"`
	Ticker           string               `json:"ticker"`
	CompanyName      string               `json:"company_name"`
	Snapshot         *MarketSnapshot      `json:"snapshot"`
	Technical        *TechnicalIndicators `json:"technical_indicators"`
	Fundamental      *FundamentalSignals  `json:"fundamental_signals"`
	Recommendation   *Recommendation      `json:"recommendation"`
	Summary          string               `json:"summary"`
	FromCache        bool                 `json:"from_cache"`
	Stale            bool                 `json:"stale"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
	Timestamp        time.Time            `json:"timestamp"`
}
