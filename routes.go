package main

import (
	"net/http"
	"strconv"
	"time"

	"stock-analyst/config"
	"stock-analyst/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *APIHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.Analysis.TimeoutSeconds) * time.Second))
	r.Use(corsMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(metricsMiddleware)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", h.handleHealth)

		// Analysis
		r.Post("/analyze", h.handleAnalyzeStock)
		r.Post("/analyze/batch", h.handleAnalyzeBatch)
		r.Get("/analyses", h.handleGetAnalyses)
	})

	return r
}

// corsMiddleware returns CORS middleware with the specified allowed origins
func corsMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// metricsMiddleware records request counts and latency per route
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = r.URL.Path
		}
		observability.GetMetrics().RecordHTTPRequest(
			r.Method,
			routePattern,
			strconv.Itoa(ww.Status()),
			time.Since(start),
		)
	})
}
