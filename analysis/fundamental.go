package analysis

import (
	"stock-analyst/models"
)

// Valuation and liquidity thresholds.
const (
	peUndervalued = 15.0
	peOvervalued  = 30.0

	volumeHigh   = 1_000_000
	volumeMedium = 100_000

	unusualVolumeHighRatio = 2.0
	unusualVolumeLowRatio  = 0.5
)

// AnalyzeFundamental classifies valuation and liquidity for a snapshot
// and derives momentum signals from its recent price change.
func AnalyzeFundamental(snapshot *models.MarketSnapshot) *models.FundamentalSignals {
	signals := &models.FundamentalSignals{
		PERatio:        snapshot.PERatio,
		MarketCap:      snapshot.MarketCap,
		Valuation:      classifyValuation(snapshot.PERatio),
		CurrentVolume:  snapshot.Volume,
		PriceChangePct: snapshot.PriceChangePercentage(),
		Signals:        []string{},
	}

	avgVolume := snapshot.AverageVolume(30)
	signals.AverageVolume30d = avgVolume

	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = float64(snapshot.Volume) / avgVolume
	}
	signals.VolumeRatio = volumeRatio
	signals.Liquidity = classifyLiquidity(avgVolume)
	signals.UnusualVolume = volumeRatio > unusualVolumeHighRatio || volumeRatio < unusualVolumeLowRatio

	signals.Signals = momentumSignals(signals.PriceChangePct)
	return signals
}

func classifyValuation(peRatio *float64) models.ValuationAssessment {
	if peRatio == nil {
		return models.ValuationUnknown
	}
	switch {
	case *peRatio < peUndervalued:
		return models.ValuationUndervalued
	case *peRatio > peOvervalued:
		return models.ValuationOvervalued
	default:
		return models.ValuationFair
	}
}

func classifyLiquidity(avgVolume float64) models.LiquidityScore {
	switch {
	case avgVolume > volumeHigh:
		return models.LiquidityHigh
	case avgVolume > volumeMedium:
		return models.LiquidityMedium
	default:
		return models.LiquidityLow
	}
}

func momentumSignals(priceChangePct float64) []string {
	signals := []string{}
	switch {
	case priceChangePct > 5:
		signals = append(signals, "Strong positive momentum (+5%)")
	case priceChangePct > 2:
		signals = append(signals, "Positive momentum (+2%)")
	case priceChangePct < -5:
		signals = append(signals, "Strong negative momentum (-5%)")
	case priceChangePct < -2:
		signals = append(signals, "Negative momentum (-2%)")
	}
	return signals
}
