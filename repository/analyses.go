package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stock-analyst/models"
)

// AnalysisRecord is a persisted audit row for one analysis request.
type AnalysisRecord struct {
	ID               uuid.UUID `json:"id"`
	Ticker           string    `json:"ticker"`
	CompanyName      string    `json:"company_name"`
	Recommendation   string    `json:"recommendation"`
	ConfidenceScore  float64   `json:"confidence_score"`
	Degraded         bool      `json:"degraded"`
	Stale            bool      `json:"stale"`
	Summary          string    `json:"summary"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// SaveAnalysis persists an audit record for a completed analysis. The
// full indicator payload is stored as JSON alongside the summary columns.
func (r *Repository) SaveAnalysis(ctx context.Context, result *models.AnalysisResult) error {
	payload, err := json.Marshal(struct {
		Technical   *models.TechnicalIndicators `json:"technical"`
		Fundamental *models.FundamentalSignals  `json:"fundamental"`
	}{result.Technical, result.Fundamental})
	if err != nil {
		return fmt.Errorf("failed to marshal analysis payload: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO analyses (id, ticker, company_name, recommendation, confidence_score, degraded, stale, summary, indicators, processing_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, result.ID, result.Ticker, result.CompanyName,
		result.Recommendation.Type, result.Recommendation.ConfidenceScore,
		result.Recommendation.Degraded, result.Stale,
		result.Summary, payload, result.ProcessingTimeMs, result.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetRecentAnalyses returns the most recent audit records for a ticker.
// An empty ticker returns records for all tickers.
func (r *Repository) GetRecentAnalyses(ctx context.Context, ticker string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, ticker, company_name, recommendation, confidence_score, degraded, stale, summary, processing_time_ms, created_at
		FROM analyses`
	args := []any{}
	if ticker != "" {
		query += ` WHERE ticker = $1`
		args = append(args, ticker)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.Ticker, &rec.CompanyName, &rec.Recommendation,
			&rec.ConfidenceScore, &rec.Degraded, &rec.Stale, &rec.Summary,
			&rec.ProcessingTimeMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
