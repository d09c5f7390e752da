package main

import (
	"context"
	"fmt"
	"time"

	"stock-analyst/analysis"
	"stock-analyst/config"
	"stock-analyst/models"
	"stock-analyst/repository"
	"stock-analyst/services"
)

// RepositoryInterface defines the repository operations needed by App
type RepositoryInterface interface {
	Close()
	Health(ctx context.Context) error
	GetRecentAnalyses(ctx context.Context, ticker string, limit int) ([]repository.AnalysisRecord, error)
}

// OrchestratorInterface defines the analysis operations
type OrchestratorInterface interface {
	Analyze(ctx context.Context, ticker string) (*models.AnalysisResult, error)
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg          *config.Config
	repo         RepositoryInterface
	orchestrator OrchestratorInterface
	fetcher      *services.Fetcher
	registry     *services.BreakerRegistry
	analysisSem  chan struct{}
}

// NewApp creates a new App application struct
func NewApp(cfg *config.Config, repo RepositoryInterface, orchestrator OrchestratorInterface, fetcher *services.Fetcher, registry *services.BreakerRegistry) *App {
	return &App{
		cfg:          cfg,
		repo:         repo,
		orchestrator: orchestrator,
		fetcher:      fetcher,
		registry:     registry,
		analysisSem:  make(chan struct{}, cfg.Analysis.ConcurrencyLimit),
	}
}

// Shutdown releases application resources
func (a *App) Shutdown(ctx context.Context) {
	if a.fetcher != nil {
		a.fetcher.Cache().StopSweep()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}

// AnalyzeStock runs the full analysis pipeline for a ticker
func (a *App) AnalyzeStock(ctx context.Context, ticker string) (*models.AnalysisResult, error) {
	if a.orchestrator == nil {
		return nil, fmt.Errorf("analysis pipeline not initialized: market data provider is not configured")
	}

	select {
	case a.analysisSem <- struct{}{}:
		defer func() { <-a.analysisSem }()
	default:
		return nil, fmt.Errorf("analysis queue full, too many concurrent requests - try again later")
	}

	return a.orchestrator.Analyze(ctx, ticker)
}

// AnalyzeBatch runs the pipeline for several tickers concurrently
func (a *App) AnalyzeBatch(ctx context.Context, tickers []string) ([]analysis.BatchItem, error) {
	if a.orchestrator == nil {
		return nil, fmt.Errorf("analysis pipeline not initialized: market data provider is not configured")
	}
	batch := analysis.NewBatchAnalyzer(a.orchestrator, a.cfg.Analysis.ConcurrencyLimit)
	return batch.AnalyzeAll(ctx, tickers), nil
}

// GetRecentAnalyses returns recent audit records for a ticker
func (a *App) GetRecentAnalyses(ctx context.Context, ticker string, limit int) ([]repository.AnalysisRecord, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return a.repo.GetRecentAnalyses(ctx, ticker, limit)
}

// The health endpoint verifies provider reachability with a bounded
// validation of a liquid ticker. The long validation TTL means repeated
// health polls usually answer from cache.
const (
	healthProbeTicker  = "AAPL"
	healthProbeTimeout = 5 * time.Second
)

// ProviderHealth live-probes the market data provider through the
// fetcher's ticker validation.
func (a *App) ProviderHealth(ctx context.Context) string {
	if a.fetcher == nil {
		return "not_configured"
	}
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if _, err := a.fetcher.ValidateTicker(probeCtx, healthProbeTicker); err != nil {
		return "disconnected"
	}
	return "connected"
}

// GeneratorHealth reports the recommendation text service's availability
// from its circuit breaker state.
func (a *App) GeneratorHealth() string {
	if !a.cfg.HasBedrock() {
		return "not_configured"
	}
	if a.registry != nil {
		if st, ok := a.registry.Status()[services.BreakerRecommendation]; ok && st.State == "open" {
			return "unavailable"
		}
	}
	return "configured"
}

// PipelineStatus reports the state of the caching and resilience layers.
type PipelineStatus struct {
	Cache    *services.CacheStats                `json:"cache,omitempty"`
	Provider *services.BreakerStatus             `json:"provider_breaker,omitempty"`
	Bedrock  map[string]services.GoBreakerStatus `json:"recommendation_breakers,omitempty"`
}

// Status returns a snapshot of the pipeline's internal state
func (a *App) Status() PipelineStatus {
	status := PipelineStatus{}
	if a.fetcher != nil {
		cache := a.fetcher.CacheStats()
		breaker := a.fetcher.BreakerStatus()
		status.Cache = &cache
		status.Provider = &breaker
	}
	if a.registry != nil {
		status.Bedrock = a.registry.Status()
	}
	return status
}

// AnalysisSemCapacity returns the capacity of the analysis semaphore (for testing)
func (a *App) AnalysisSemCapacity() int {
	return cap(a.analysisSem)
}

var _ OrchestratorInterface = (*analysis.Orchestrator)(nil)
