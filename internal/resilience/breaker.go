// Package resilience provides reliability patterns for external service calls.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the externally visible breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Breaker implements a circuit breaker pattern for protecting external calls.
// It tracks consecutive failures and opens the circuit when a threshold is reached,
// preventing further calls until a timeout elapses.
type Breaker struct {
	name        string
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time // for testing
}

// NewBreaker creates a circuit breaker that opens after maxFailures consecutive
// failures and stays open for the given timeout before transitioning to half-open.
// The name identifies the protected dependency in logs.
func NewBreaker(name string, maxFailures int, timeout time.Duration) *Breaker {
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
}

// State reports the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn if the circuit is closed or half-open.
// Returns ErrCircuitOpen if the circuit is open.
// Errors for which ignore returns true count as successes; callers use it so
// that caller-side faults (a 404, a 401) do not trip the breaker.
func (b *Breaker) Execute(fn func() error, ignore ...func(error) bool) error {
	if !b.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && !ignored(err, ignore) {
		b.onFailure()
		return err
	}

	b.onSuccess()
	return err
}

func ignored(err error, preds []func(error) bool) bool {
	for _, p := range preds {
		if p(err) {
			return true
		}
	}
	return false
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.timeout {
			b.state = StateHalfOpen
			return true
		}
		return false
	case StateHalfOpen:
		return true
	}
	return false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		if b.state != StateOpen {
			slog.Warn("circuit breaker opened", "breaker", b.name, "failures", b.failures)
		}
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	if b.state == StateHalfOpen {
		slog.Info("circuit breaker closed", "breaker", b.name)
	}
	b.failures = 0
	b.state = StateClosed
}
