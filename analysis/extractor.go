package analysis

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"stock-analyst/models"
	"stock-analyst/observability"
)

// Default substitutions for unparseable fields. The Recommendation domain
// object forbids empty reasoning, factors and risk text, so every default
// is non-empty.
const (
	defaultConfidence       = 50.0
	placeholderReasoning    = "Reasoning could not be parsed from the analysis response; defaulting to a Hold recommendation."
	placeholderKeyFactor    = "Key factors could not be parsed from the analysis response"
	placeholderRisk         = "Risk assessment could not be parsed from the analysis response"
	maxKeyFactors           = 5
	degradedSummaryFallback = "Analysis response could not be fully parsed; recommendation fields were defaulted."
)

// Labeled-section patterns for the generator's response template. Each
// free-text section runs until the next known label or end of input.
var (
	recommendationRe = regexp.MustCompile(`(?i)RECOMMENDATION:\s*(Buy|Hold|Sell)`)
	confidenceRe     = regexp.MustCompile(`(?i)CONFIDENCE_SCORE:\s*(-?\d+(?:\.\d+)?)`)
	reasoningRe      = regexp.MustCompile(`(?is)REASONING:\s*(.*?)(?:KEY_FACTORS:|RISK_ASSESSMENT:|SUMMARY:|$)`)
	keyFactorsRe     = regexp.MustCompile(`(?is)KEY_FACTORS:\s*(.*?)(?:RISK_ASSESSMENT:|SUMMARY:|$)`)
	riskRe           = regexp.MustCompile(`(?is)RISK_ASSESSMENT:\s*(.*?)(?:SUMMARY:|$)`)
	summaryRe        = regexp.MustCompile(`(?is)SUMMARY:\s*(.*)$`)
)

// Extraction is a parsed recommendation plus the response summary section.
type Extraction struct {
	Recommendation *models.Recommendation
	Summary        string
}

// ExtractRecommendation converts free text following the labeled-section
// template into a validated Recommendation. It never fails: every missing
// or invalid field is substituted with a safe default, recorded in
// DegradedFields and logged, so callers can tell a genuine analysis from
// a degraded one.
func ExtractRecommendation(text string) *Extraction {
	rec := &models.Recommendation{
		Timestamp: time.Now().UTC(),
	}
	var degraded []string

	switch m := recommendationRe.FindStringSubmatch(text); {
	case m != nil && strings.EqualFold(m[1], "Buy"):
		rec.Type = models.RecommendationBuy
	case m != nil && strings.EqualFold(m[1], "Sell"):
		rec.Type = models.RecommendationSell
	case m != nil:
		rec.Type = models.RecommendationHold
	default:
		rec.Type = models.RecommendationHold
		degraded = append(degraded, "recommendation")
	}

	rec.ConfidenceScore = defaultConfidence
	confidenceParsed := false
	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil && score > 0 && score <= 100 {
			rec.ConfidenceScore = score
			confidenceParsed = true
		}
	}
	if !confidenceParsed {
		degraded = append(degraded, "confidence_score")
	}

	if m := reasoningRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		rec.Reasoning = strings.TrimSpace(m[1])
	} else {
		rec.Reasoning = placeholderReasoning
		degraded = append(degraded, "reasoning")
	}

	rec.KeyFactors = extractKeyFactors(text)
	if len(rec.KeyFactors) == 0 {
		rec.KeyFactors = []string{placeholderKeyFactor}
		degraded = append(degraded, "key_factors")
	}

	if m := riskRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		rec.RiskAssessment = strings.TrimSpace(m[1])
	} else {
		rec.RiskAssessment = placeholderRisk
		degraded = append(degraded, "risk_assessment")
	}

	summary := ""
	if m := summaryRe.FindStringSubmatch(text); m != nil {
		summary = strings.TrimSpace(m[1])
	}

	if len(degraded) > 0 {
		rec.Degraded = true
		rec.DegradedFields = degraded
		observability.Warn("recommendation fields defaulted during extraction",
			"fields", strings.Join(degraded, ","))
		if summary == "" {
			summary = degradedSummaryFallback
		}
	}

	return &Extraction{Recommendation: rec, Summary: summary}
}

// extractKeyFactors parses the comma-separated KEY_FACTORS section,
// capped at maxKeyFactors entries.
func extractKeyFactors(text string) []string {
	m := keyFactorsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	factors := []string{}
	for _, factor := range strings.Split(m[1], ",") {
		factor = strings.TrimSpace(factor)
		if factor == "" {
			continue
		}
		factors = append(factors, factor)
		if len(factors) == maxKeyFactors {
			break
		}
	}
	return factors
}

// DegradedRecommendation returns the full safe-default recommendation
// used when the generator call itself fails.
func DegradedRecommendation(reason string) *models.Recommendation {
	return &models.Recommendation{
		Type:            models.RecommendationHold,
		ConfidenceScore: defaultConfidence,
		Reasoning:       "Analysis failed: " + reason + ". Defaulting to a Hold recommendation.",
		KeyFactors:      []string{"Recommendation service unavailable"},
		RiskAssessment:  "Unable to assess risk because the recommendation service failed",
		Degraded:        true,
		DegradedFields:  []string{"recommendation", "confidence_score", "reasoning", "key_factors", "risk_assessment"},
		Timestamp:       time.Now().UTC(),
	}
}
