package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-analyst/analysis"
	"stock-analyst/config"
	"stock-analyst/observability"
	"stock-analyst/repository"
	"stock-analyst/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (ignore errors in production)
	_ = godotenv.Load()

	production := os.Getenv("APP_ENV") == "production"
	observability.InitLogger(production)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("failed to load configuration", "error", err)
	}

	ctx := context.Background()

	// Database is optional: without it the service runs but skips the
	// audit trail.
	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Fatal("failed to connect to database", "error", err)
		}
		observability.Info("connected to database")
	} else {
		observability.Warn("DATABASE_URL not set, audit trail disabled")
	}

	cache := services.NewTTLCache(cfg.Cache.SweepInterval)
	breaker := services.NewCircuitBreaker("market-data", cfg.Breaker.FailureThreshold, cfg.Breaker.RecoveryTimeout)

	var fetcher *services.Fetcher
	if cfg.HasAlpaca() {
		provider := services.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		fetcher = services.NewFetcher(provider, cache, breaker, services.FetcherConfig{
			CurrentTTL:    cfg.Cache.CurrentTTL,
			HistoryTTL:    cfg.Cache.HistoryTTL,
			ValidationTTL: cfg.Cache.ValidationTTL,
			HistoryMonths: cfg.Analysis.HistoryMonths,
			Retry: services.RetryConfig{
				MaxAttempts:    cfg.Retry.MaxAttempts,
				InitialBackoff: cfg.Retry.InitialBackoff,
				MaxBackoff:     cfg.Retry.MaxBackoff,
			},
		})
	} else {
		observability.Warn("Alpaca credentials not set, analysis disabled")
	}

	// Recommendation generation is optional: without Bedrock the pipeline
	// still runs but every recommendation is the degraded default.
	registry := services.NewBreakerRegistry(services.DefaultGoBreakerConfig)
	var generator services.TextGenerator
	if cfg.HasBedrock() {
		bedrock, err := services.NewBedrockService(ctx, cfg.Bedrock.Region, cfg.Bedrock.ModelID, cfg.Bedrock.MaxTokens, registry)
		if err != nil {
			observability.Fatal("failed to initialize Bedrock client", "error", err)
		}
		generator = bedrock
	} else {
		observability.Warn("Bedrock not configured, recommendations will be degraded defaults")
	}

	var orchestrator OrchestratorInterface
	if fetcher != nil {
		var audit analysis.AuditStore
		if repo != nil {
			audit = repo
		}
		orchestrator = analysis.NewOrchestrator(fetcher, generator, audit, time.Duration(cfg.Analysis.TimeoutSeconds)*time.Second)
	}

	var appRepo RepositoryInterface
	if repo != nil {
		appRepo = repo
	}
	app := NewApp(cfg, appRepo, orchestrator, fetcher, registry)

	handler := NewAPIHandler(app, cfg)
	router := NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.Analysis.TimeoutSeconds+10) * time.Second,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	cache.StartSweep(sweepCtx)

	go func() {
		observability.Info("starting server", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	app.Shutdown(shutdownCtx)
	observability.Info("server stopped")
}
