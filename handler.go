package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"stock-analyst/config"
	"stock-analyst/models"
)

// APIHandler handles HTTP API requests
type APIHandler struct {
	app *App
	cfg *config.Config
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(app *App, cfg *config.Config) *APIHandler {
	return &APIHandler{app: app, cfg: cfg}
}

// handleHealth returns the health status of the application
func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"database": "not_configured",
	}
	status := map[string]interface{}{
		"status":   "ok",
		"services": services,
	}

	if h.app.repo != nil {
		if err := h.app.repo.Health(r.Context()); err == nil {
			services["database"] = "connected"
		} else {
			services["database"] = "disconnected"
			status["status"] = "degraded"
		}
	}

	services["market_data"] = h.app.ProviderHealth(r.Context())
	if services["market_data"] == "disconnected" {
		status["status"] = "degraded"
	}

	services["generator"] = h.app.GeneratorHealth()
	if services["generator"] == "unavailable" {
		status["status"] = "degraded"
	}

	status["pipeline"] = h.app.Status()

	h.jsonResponse(w, status)
}

// handleAnalyzeStock triggers analysis of a stock
func (h *APIHandler) handleAnalyzeStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker string `json:"ticker"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Try form value
		req.Ticker = r.FormValue("ticker")
	}

	if req.Ticker == "" {
		h.jsonError(w, "Ticker is required", http.StatusBadRequest)
		return
	}

	// Normalize ticker to uppercase
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))

	if err := h.validateTicker(req.Ticker); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.app.AnalyzeStock(r.Context(), req.Ticker)
	if err != nil {
		h.jsonError(w, err.Error(), h.statusForError(err))
		return
	}

	h.jsonResponse(w, result)
}

// maxBatchTickers bounds a single batch request.
const maxBatchTickers = 20

// handleAnalyzeBatch triggers analysis of several stocks in one request
func (h *APIHandler) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tickers []string `json:"tickers"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Tickers) == 0 {
		h.jsonError(w, "At least one ticker is required", http.StatusBadRequest)
		return
	}
	if len(req.Tickers) > maxBatchTickers {
		h.jsonError(w, fmt.Sprintf("Too many tickers (max %d)", maxBatchTickers), http.StatusBadRequest)
		return
	}

	for i, ticker := range req.Tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if err := h.validateTicker(ticker); err != nil {
			h.jsonError(w, fmt.Sprintf("ticker %q: %s", req.Tickers[i], err.Error()), http.StatusBadRequest)
			return
		}
		req.Tickers[i] = ticker
	}

	items, err := h.app.AnalyzeBatch(r.Context(), req.Tickers)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"results": items,
		"count":   len(items),
	})
}

// handleGetAnalyses returns recent analysis audit records for a ticker
func (h *APIHandler) handleGetAnalyses(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if err := h.validateTicker(ticker); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := h.parseLimitParam(r, 20)

	records, err := h.app.GetRecentAnalyses(r.Context(), ticker, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"ticker":   ticker,
		"analyses": records,
		"count":    len(records),
	})
}

// Helper functions

func (h *APIHandler) validateTicker(ticker string) error {
	if ticker == "" {
		return fmt.Errorf("ticker is required")
	}

	if len(ticker) > 10 {
		return fmt.Errorf("ticker too long (max 10 characters)")
	}

	matched, _ := regexp.MatchString("^[A-Z0-9.-]+$", ticker)
	if !matched {
		return fmt.Errorf("invalid ticker format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

func (h *APIHandler) statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidTicker):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNoHistoricalData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrAnalysisTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) parseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *APIHandler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *APIHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
