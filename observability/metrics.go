package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Analysis metrics
	AnalysisRequestsTotal    *prometheus.CounterVec
	AnalysisDuration         *prometheus.HistogramVec
	AnalysisErrorsTotal      *prometheus.CounterVec
	RecommendationTypes      *prometheus.CounterVec
	RecommendationConfidence *prometheus.HistogramVec
	RecommendationDegraded   prometheus.Counter

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Provider metrics
	ProviderRequestsTotal *prometheus.CounterVec
	ProviderErrorsTotal   *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// confidenceBuckets are histogram buckets for confidence metrics (0 to 100)
var confidenceBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		AnalysisRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Total number of stock analysis requests",
			},
			[]string{"ticker"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_analyst",
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Duration of stock analysis in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		AnalysisErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "analysis",
				Name:      "errors_total",
				Help:      "Total number of analysis errors",
			},
			[]string{"error_type"},
		),
		RecommendationTypes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "recommendation",
				Name:      "types_total",
				Help:      "Total number of recommendations by type",
			},
			[]string{"type"},
		),
		RecommendationConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_analyst",
				Subsystem: "recommendation",
				Name:      "confidence",
				Help:      "Distribution of recommendation confidence levels",
				Buckets:   confidenceBuckets,
			},
			[]string{"type"},
		),
		RecommendationDegraded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "recommendation",
				Name:      "degraded_total",
				Help:      "Total number of recommendations with defaulted fields",
			},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"operation"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"operation"},
		),
		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Total number of data provider requests",
			},
			[]string{"operation"},
		),
		ProviderErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "provider",
				Name:      "errors_total",
				Help:      "Total number of data provider errors",
			},
			[]string{"operation"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "stock_analyst",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"breaker"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_analyst",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_analyst",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// SetMetrics overrides the global metrics instance (useful for testing)
func SetMetrics(m *Metrics) {
	globalMetrics = m
}

// RecordAnalysis records a completed analysis request
func (m *Metrics) RecordAnalysis(ticker, status string, duration time.Duration) {
	m.AnalysisRequestsTotal.WithLabelValues(ticker).Inc()
	m.AnalysisDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordAnalysisError records an analysis failure by error type
func (m *Metrics) RecordAnalysisError(errorType string) {
	m.AnalysisErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordRecommendation records a produced recommendation
func (m *Metrics) RecordRecommendation(recType string, confidence float64, degraded bool) {
	m.RecommendationTypes.WithLabelValues(recType).Inc()
	m.RecommendationConfidence.WithLabelValues(recType).Observe(confidence)
	if degraded {
		m.RecommendationDegraded.Inc()
	}
}

// RecordCacheHit records a cache hit for an operation
func (m *Metrics) RecordCacheHit(operation string) {
	m.CacheHitsTotal.WithLabelValues(operation).Inc()
}

// RecordCacheMiss records a cache miss for an operation
func (m *Metrics) RecordCacheMiss(operation string) {
	m.CacheMissesTotal.WithLabelValues(operation).Inc()
}

// RecordProviderRequest records a data provider request
func (m *Metrics) RecordProviderRequest(operation string) {
	m.ProviderRequestsTotal.WithLabelValues(operation).Inc()
}

// RecordProviderError records a data provider error
func (m *Metrics) RecordProviderError(operation string) {
	m.ProviderErrorsTotal.WithLabelValues(operation).Inc()
}

// SetBreakerState sets the state gauge for a circuit breaker
func (m *Metrics) SetBreakerState(breaker string, state int) {
	m.CircuitBreakerState.WithLabelValues(breaker).Set(float64(state))
}

// RecordBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordBreakerTrip(breaker string) {
	m.CircuitBreakerTrips.WithLabelValues(breaker).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
