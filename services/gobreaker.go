package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"stock-analyst/observability"
)

// GoBreakerConfig holds settings for the generic external-call breakers.
// The market data provider uses the bespoke CircuitBreaker in breaker.go;
// everything else (the recommendation text service) goes through this
// registry.
type GoBreakerConfig struct {
	MaxRequests uint32        // max requests allowed in half-open state
	Interval    time.Duration // cyclic period of the closed state to clear counts
	Timeout     time.Duration // period of the open state before transitioning to half-open
}

// DefaultGoBreakerConfig returns sensible defaults for external services.
var DefaultGoBreakerConfig = GoBreakerConfig{
	MaxRequests: 5,
	Interval:    1 * time.Minute,
	Timeout:     30 * time.Second,
}

// BreakerRegistry manages gobreaker circuit breakers for external
// services, created lazily per service name.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	config   GoBreakerConfig
}

// NewBreakerRegistry creates a registry with the given config.
func NewBreakerRegistry(config GoBreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		config:   config,
	}
}

// GetBreaker returns (or creates) the circuit breaker for name.
func (r *BreakerRegistry) GetBreaker(name string) *gobreaker.CircuitBreaker[any] {
	r.mu.RLock()
	cb, exists := r.breakers[name]
	r.mu.RUnlock()

	if exists {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: r.config.MaxRequests,
		Interval:    r.config.Interval,
		Timeout:     r.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip the breaker if failure ratio exceeds 50% with at least 5 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			observability.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())

			metrics := observability.GetMetrics()
			metrics.SetBreakerState(name, gobreakerStateToInt(to))
			if to == gobreaker.StateOpen {
				metrics.RecordBreakerTrip(name)
			}
		},
	}

	cb = gobreaker.NewCircuitBreaker[any](settings)
	r.breakers[name] = cb

	return cb
}

// Execute runs fn through the named circuit breaker.
func (r *BreakerRegistry) Execute(ctx context.Context, name string, fn func() (any, error)) (any, error) {
	cb := r.GetBreaker(name)

	result, err := cb.Execute(func() (any, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return fn()
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			observability.Warn("circuit breaker open, rejecting request", "breaker", name)
			return nil, fmt.Errorf("service %s unavailable: circuit breaker open", name)
		}
		if err == gobreaker.ErrTooManyRequests {
			observability.Warn("circuit breaker half-open, too many requests", "breaker", name)
			return nil, fmt.Errorf("service %s unavailable: too many requests in half-open state", name)
		}
	}

	return result, err
}

// GoBreakerStatus represents the current state of a registry breaker.
type GoBreakerStatus struct {
	Name             string `json:"name"`
	State            string `json:"state"`
	Requests         uint32 `json:"requests"`
	TotalSuccesses   uint32 `json:"total_successes"`
	TotalFailures    uint32 `json:"total_failures"`
	ConsecutiveFails uint32 `json:"consecutive_failures"`
}

// Status returns the current state of all breakers in the registry.
func (r *BreakerRegistry) Status() map[string]GoBreakerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]GoBreakerStatus)
	for name, cb := range r.breakers {
		counts := cb.Counts()
		status[name] = GoBreakerStatus{
			Name:             name,
			State:            cb.State().String(),
			Requests:         counts.Requests,
			TotalSuccesses:   counts.TotalSuccesses,
			TotalFailures:    counts.TotalFailures,
			ConsecutiveFails: counts.ConsecutiveFailures,
		}
	}
	return status
}

// BreakerRecommendation is the breaker name for the recommendation text
// service.
const BreakerRecommendation = "recommendation"

// gobreakerStateToInt converts a gobreaker state to a metric value.
// 0=closed, 1=half-open, 2=open.
func gobreakerStateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
