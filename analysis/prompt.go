package analysis

import (
	"fmt"
	"strings"

	"stock-analyst/models"
)

// BuildRecommendationPrompt assembles the analysis prompt for the text
// generator. The FORMAT section is the parsing contract the extractor
// relies on.
func BuildRecommendationPrompt(snapshot *models.MarketSnapshot, technical *models.TechnicalIndicators, fundamental *models.FundamentalSignals) string {
	var b strings.Builder

	b.WriteString("Analyze the following stock data and provide a comprehensive investment recommendation.\n\n")

	b.WriteString("STOCK INFORMATION:\n")
	fmt.Fprintf(&b, "- Company: %s\n", snapshot.CompanyName)
	fmt.Fprintf(&b, "- Ticker: %s\n", snapshot.Ticker)
	fmt.Fprintf(&b, "- Current Price: $%s\n", snapshot.CurrentPrice.StringFixed(2))
	fmt.Fprintf(&b, "- Daily High: $%s\n", snapshot.DailyHigh.StringFixed(2))
	fmt.Fprintf(&b, "- Daily Low: $%s\n", snapshot.DailyLow.StringFixed(2))
	fmt.Fprintf(&b, "- Volume: %d\n", snapshot.Volume)
	fmt.Fprintf(&b, "- Price Change: %+.2f%%\n", fundamental.PriceChangePct)
	fmt.Fprintf(&b, "- 30-Day Avg Volume: %.0f\n", fundamental.AverageVolume30d)
	if snapshot.MarketCap != nil {
		fmt.Fprintf(&b, "- Market Cap: $%d\n", *snapshot.MarketCap)
	} else {
		b.WriteString("- Market Cap: N/A\n")
	}
	if snapshot.PERatio != nil {
		fmt.Fprintf(&b, "- P/E Ratio: %.2f\n", *snapshot.PERatio)
	} else {
		b.WriteString("- P/E Ratio: N/A\n")
	}

	b.WriteString("\nTECHNICAL INDICATORS:\n")
	for _, period := range maPeriods {
		if ma, ok := technical.MovingAverages[period]; ok {
			fmt.Fprintf(&b, "- MA(%d): $%.2f\n", period, ma)
		}
	}
	if technical.RSI != nil {
		fmt.Fprintf(&b, "- RSI(14): %.2f\n", *technical.RSI)
	}
	if technical.Volatility != nil {
		fmt.Fprintf(&b, "- Volatility(30d): %.2f%%\n", *technical.Volatility)
	}
	fmt.Fprintf(&b, "- Trend: %s\n", technical.Trend)
	if technical.Support != nil && technical.Resistance != nil {
		fmt.Fprintf(&b, "- Support/Resistance: $%.2f / $%.2f\n", *technical.Support, *technical.Resistance)
	}
	for _, signal := range technical.Signals {
		fmt.Fprintf(&b, "- %s\n", signal)
	}

	b.WriteString("\nFUNDAMENTAL SIGNALS:\n")
	fmt.Fprintf(&b, "- Valuation: %s\n", fundamental.Valuation)
	fmt.Fprintf(&b, "- Liquidity: %s\n", fundamental.Liquidity)
	if fundamental.UnusualVolume {
		fmt.Fprintf(&b, "- Unusual volume (%.2fx 30-day average)\n", fundamental.VolumeRatio)
	}
	for _, signal := range fundamental.Signals {
		fmt.Fprintf(&b, "- %s\n", signal)
	}

	b.WriteString("\nHISTORICAL SUMMARY:\n")
	b.WriteString(summarizeHistory(snapshot.History))

	b.WriteString(`

ANALYSIS REQUIREMENTS:
Please provide a structured analysis with the following components:

1. RECOMMENDATION: Choose exactly one of: "Buy", "Hold", or "Sell"
2. CONFIDENCE_SCORE: Provide a numerical confidence score between 0 and 100
3. REASONING: Provide detailed reasoning for your recommendation
4. KEY_FACTORS: List 3-5 specific factors that most influenced your decision
5. RISK_ASSESSMENT: Evaluate the risk level and potential concerns
6. SUMMARY: Provide a concise 2-3 sentence summary of your analysis

FORMAT YOUR RESPONSE EXACTLY AS FOLLOWS:
RECOMMENDATION: [Buy/Hold/Sell]
CONFIDENCE_SCORE: [0-100]
REASONING: [Your detailed analysis]
KEY_FACTORS: [Factor 1], [Factor 2], [Factor 3], [Factor 4], [Factor 5]
RISK_ASSESSMENT: [Risk evaluation]
SUMMARY: [Concise summary]
`)

	return b.String()
}

// summarizeHistory condenses the historical series into a few lines for
// the prompt.
func summarizeHistory(history []models.PricePoint) string {
	if len(history) == 0 {
		return "No historical data available\n"
	}

	oldest := history[0].Close.InexactFloat64()
	newest := history[len(history)-1].Close.InexactFloat64()
	totalReturn := 0.0
	if oldest != 0 {
		totalReturn = (newest - oldest) / oldest * 100
	}

	low := history[0].Low.InexactFloat64()
	high := history[0].High.InexactFloat64()
	var totalVolume int64
	for _, p := range history {
		if l := p.Low.InexactFloat64(); l < low {
			low = l
		}
		if h := p.High.InexactFloat64(); h > high {
			high = h
		}
		totalVolume += p.Volume
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- Total Return: %+.2f%%\n", totalReturn)
	fmt.Fprintf(&b, "- Price Range: $%.2f - $%.2f\n", low, high)
	fmt.Fprintf(&b, "- Data Points: %d trading days\n", len(history))
	fmt.Fprintf(&b, "- Average Daily Volume: %.0f\n", float64(totalVolume)/float64(len(history)))
	return b.String()
}
