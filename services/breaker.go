package services

import (
	"sync"
	"time"

	"stock-analyst/observability"
)

// BreakerState is the current state of a CircuitBreaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// CircuitBreaker tracks the health of an upstream dependency and gates
// calls to it. One instance is shared per dependency; all callers observe
// the same state.
//
// CLOSED: calls pass through. Each failure increments the failure count;
// reaching the threshold trips the breaker to OPEN. Each success decrements
// the count toward zero.
//
// OPEN: calls are rejected without touching the upstream until the
// recovery timeout has elapsed since the last failure, at which point the
// next probe moves the breaker to HALF_OPEN before being attempted.
//
// HALF_OPEN: exactly one trial call is allowed; further calls are rejected
// until the trial resolves. Success closes the breaker and resets the
// failure count; failure reopens it and refreshes the last failure time.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	state            BreakerState
	failureCount     int
	lastFailureTime  time.Time
	failureThreshold int
	recoveryTimeout  time.Duration

	now func() time.Time
}

// Defaults for the market data provider breaker.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

// NewCircuitBreaker creates a closed breaker. Non-positive threshold or
// timeout fall back to the defaults.
func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	return &CircuitBreaker{
		name:             name,
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. When the breaker is OPEN and
// the recovery timeout has elapsed, the probe transitions it to HALF_OPEN
// and is allowed through; while that probe is in flight all other callers
// are rejected.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		// A trial call is already in flight.
		return false
	}
	if b.now().Sub(b.lastFailureTime) < b.recoveryTimeout {
		return false
	}
	b.state = BreakerHalfOpen
	observability.Info("circuit breaker transitioning to half-open", "breaker", b.name)
	return true
}

// RecordSuccess reports a successful call outcome.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.state = BreakerClosed
		b.failureCount = 0
		observability.Info("circuit breaker closed after successful probe", "breaker", b.name)
	case BreakerClosed:
		if b.failureCount > 0 {
			b.failureCount--
		}
	}
	observability.GetMetrics().SetBreakerState(b.name, breakerStateToInt(b.state))
}

// RecordFailure reports a failed call outcome.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	if b.state == BreakerHalfOpen || b.failureCount >= b.failureThreshold {
		if b.state != BreakerOpen {
			observability.Warn("circuit breaker opened",
				"breaker", b.name,
				"failure_count", b.failureCount)
			observability.GetMetrics().RecordBreakerTrip(b.name)
		}
		b.state = BreakerOpen
	}
	observability.GetMetrics().SetBreakerState(b.name, breakerStateToInt(b.state))
}

// State returns the current state, applying the OPEN→HALF_OPEN recovery
// check first so observers never see a stale OPEN past the timeout.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.lastFailureTime) >= b.recoveryTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

// BreakerStatus is a read-only diagnostic snapshot for health checks.
type BreakerStatus struct {
	Name             string       `json:"name"`
	State            BreakerState `json:"state"`
	FailureCount     int          `json:"failure_count"`
	FailureThreshold int          `json:"failure_threshold"`
	LastFailureTime  *time.Time   `json:"last_failure_time,omitempty"`
}

// Status returns the breaker's current status.
func (b *CircuitBreaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := BreakerStatus{
		Name:             b.name,
		State:            b.state,
		FailureCount:     b.failureCount,
		FailureThreshold: b.failureThreshold,
	}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		status.LastFailureTime = &t
	}
	return status
}

// breakerStateToInt maps a state to a metric value: 0=closed, 1=half-open,
// 2=open.
func breakerStateToInt(state BreakerState) int {
	switch state {
	case BreakerClosed:
		return 0
	case BreakerHalfOpen:
		return 1
	case BreakerOpen:
		return 2
	default:
		return -1
	}
}
