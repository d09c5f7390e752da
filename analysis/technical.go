// Package analysis implements the deterministic indicator engines, the
// recommendation extractor and the orchestrator that composes a full
// stock analysis.
package analysis

import (
	"fmt"
	"math"

	"stock-analyst/models"
)

// Indicator window defaults.
const (
	rsiPeriod          = 14
	volatilityWindow   = 30
	supportResistWind  = 20
	trendShortPeriod   = 20
	trendLongPeriod    = 50
	trendThresholdPct  = 0.02
	rsiOverboughtLevel = 70
	rsiOversoldLevel   = 30
)

// maPeriods are the moving average periods reported in TechnicalIndicators.
var maPeriods = []int{20, 50, 200}

// MovingAverage returns the mean of the last n closes. The second return
// is false when fewer than n points exist.
func MovingAverage(history []models.PricePoint, n int) (float64, bool) {
	if n <= 0 || len(history) < n {
		return 0, false
	}
	sum := 0.0
	for _, p := range history[len(history)-n:] {
		sum += p.Close.InexactFloat64()
	}
	return sum / float64(n), true
}

// RSI returns the Relative Strength Index over the last period deltas.
// An all-gains window yields exactly 100; an all-losses window yields 0.
// The second return is false when fewer than period+1 points exist.
func RSI(history []models.PricePoint, period int) (float64, bool) {
	if period <= 0 || len(history) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := len(history) - period; i < len(history); i++ {
		change := history[i].Close.InexactFloat64() - history[i-1].Close.InexactFloat64()
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// Volatility returns the population standard deviation of daily returns
// over the trailing window, as a percentage. The second return is false
// when fewer than window+1 points exist.
func Volatility(history []models.PricePoint, window int) (float64, bool) {
	if window <= 0 || len(history) < window+1 {
		return 0, false
	}

	recent := history[len(history)-window-1:]
	returns := make([]float64, 0, window)
	for i := 1; i < len(recent); i++ {
		prev := recent[i-1].Close.InexactFloat64()
		if prev == 0 {
			continue
		}
		returns = append(returns, (recent[i].Close.InexactFloat64()-prev)/prev)
	}
	if len(returns) == 0 {
		return 0, false
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * 100, true
}

// IdentifyTrend compares the 20-day and 50-day moving averages. The short
// MA exceeding the long by more than 2% is bullish, trailing by more than
// 2% bearish, otherwise neutral. Insufficient history for either MA yields
// TrendInsufficientData.
func IdentifyTrend(history []models.PricePoint) models.Trend {
	shortMA, okShort := MovingAverage(history, trendShortPeriod)
	longMA, okLong := MovingAverage(history, trendLongPeriod)
	if !okShort || !okLong {
		return models.TrendInsufficientData
	}

	switch {
	case shortMA > longMA*(1+trendThresholdPct):
		return models.TrendBullish
	case shortMA < longMA*(1-trendThresholdPct):
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

// SupportResistance returns the lowest low and highest high over the
// trailing window. The last return is false when fewer than window points
// exist.
func SupportResistance(history []models.PricePoint, window int) (support, resistance float64, ok bool) {
	if window <= 0 || len(history) < window {
		return 0, 0, false
	}

	recent := history[len(history)-window:]
	support = recent[0].Low.InexactFloat64()
	resistance = recent[0].High.InexactFloat64()
	for _, p := range recent[1:] {
		if low := p.Low.InexactFloat64(); low < support {
			support = low
		}
		if high := p.High.InexactFloat64(); high > resistance {
			resistance = high
		}
	}
	return support, resistance, true
}

// AnalyzeTechnical computes the full indicator set for a snapshot's
// history. The history is never mutated; indicators that cannot be
// computed are left unset.
func AnalyzeTechnical(snapshot *models.MarketSnapshot) *models.TechnicalIndicators {
	history := snapshot.History

	indicators := &models.TechnicalIndicators{
		MovingAverages: make(map[int]float64),
		Trend:          IdentifyTrend(history),
		Signals:        []string{},
	}

	for _, period := range maPeriods {
		if ma, ok := MovingAverage(history, period); ok {
			indicators.MovingAverages[period] = ma
		}
	}
	if rsi, ok := RSI(history, rsiPeriod); ok {
		indicators.RSI = &rsi
	}
	if vol, ok := Volatility(history, volatilityWindow); ok {
		indicators.Volatility = &vol
	}
	if support, resistance, ok := SupportResistance(history, supportResistWind); ok {
		indicators.Support = &support
		indicators.Resistance = &resistance
	}

	indicators.Signals = technicalSignals(snapshot, indicators)
	return indicators
}

// technicalSignals derives human-readable signal strings from the
// computed indicators.
func technicalSignals(snapshot *models.MarketSnapshot, ind *models.TechnicalIndicators) []string {
	signals := []string{}
	currentPrice := snapshot.CurrentPrice.InexactFloat64()

	if ma20, ok := ind.MovingAverages[20]; ok {
		if currentPrice > ma20 {
			signals = append(signals, "Price above 20-day MA (bullish)")
		} else if currentPrice < ma20 {
			signals = append(signals, "Price below 20-day MA (bearish)")
		}

		if ma50, ok := ind.MovingAverages[50]; ok {
			if ma20 > ma50 {
				signals = append(signals, "20-day MA above 50-day MA (bullish)")
			} else {
				signals = append(signals, "20-day MA below 50-day MA (bearish)")
			}
		}
	}

	if ind.RSI != nil {
		if *ind.RSI > rsiOverboughtLevel {
			signals = append(signals, fmt.Sprintf("RSI overbought (>%d)", rsiOverboughtLevel))
		} else if *ind.RSI < rsiOversoldLevel {
			signals = append(signals, fmt.Sprintf("RSI oversold (<%d)", rsiOversoldLevel))
		}
	}

	return signals
}
