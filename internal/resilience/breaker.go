// Package resilience provides failure isolation for external dependencies.
package resilience

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState represents the state of a breaker.
type BreakerState string

const (
	BreakerClosed BreakerState = "CLOSED" // calls pass through
	BreakerOpen   BreakerState = "OPEN"   // calls are rejected immediately
)

// OpenError is returned when a call is rejected because the breaker is open.
// It carries the remaining wait until the next attempt will be allowed.
type OpenError struct {
	Name      string
	Remaining time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("breaker %s open, retry in %.0fs", e.Name, e.Remaining.Seconds())
}

// BreakerConfig holds breaker configuration.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// Cooldown is how long after the last failure calls stay rejected.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         5 * time.Minute,
	}
}

// Breaker suspends calls to a dependency after a run of consecutive
// failures.
//
// The reopen behavior is optimistic: once the cooldown has elapsed since the
// last failure, the breaker closes, the failure count resets, and the very
// next call is attempted. There is no half-open trial state; a failed
// attempt after reopening counts toward a fresh run of consecutive
// failures, so the breaker opens again only once that run reaches the
// threshold. The breaker never swallows the underlying error, it only
// decides whether to attempt the call at all.
type Breaker struct {
	name   string
	config BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time

	totalRequests  int64
	totalFailures  int64
	totalSuccesses int64
	totalRejected  int64

	now func() time.Time
}

// NewBreaker creates a new breaker.
func NewBreaker(name string, config BreakerConfig) *Breaker {
	return &Breaker{
		name:   name,
		config: config,
		state:  BreakerClosed,
		now:    time.Now,
	}
}

// SetClock replaces the breaker's clock. Intended for tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Execute runs fn with breaker protection. While open and within the
// cooldown it fails fast with *OpenError without invoking fn; otherwise the
// call is attempted and its error, if any, is returned unchanged.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	if err := fn(); err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// ExecuteWithResult runs a function returning a result with breaker
// protection.
func ExecuteWithResult[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T

	if err := b.allow(); err != nil {
		return zero, err
	}

	result, err := fn()
	if err != nil {
		b.recordFailure()
		return zero, err
	}
	b.recordSuccess()
	return result, nil
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		elapsed := b.now().Sub(b.lastFailure)
		if elapsed < b.config.Cooldown {
			b.totalRejected++
			return &OpenError{Name: b.name, Remaining: b.config.Cooldown - elapsed}
		}
		// Cooldown elapsed: close and let this call through.
		b.state = BreakerClosed
		b.failures = 0
	}

	b.totalRequests++
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalSuccesses++
	b.failures = 0
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalFailures++
	b.failures++
	b.lastFailure = b.now()

	if b.failures >= b.config.FailureThreshold {
		b.state = BreakerOpen
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// Reset returns the breaker to the closed state with a zero failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failures = 0
	b.lastFailure = time.Time{}
}

// Stats returns breaker statistics.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerStats{
		Name:            b.name,
		State:           b.state,
		TotalRequests:   b.totalRequests,
		TotalSuccesses:  b.totalSuccesses,
		TotalFailures:   b.totalFailures,
		TotalRejected:   b.totalRejected,
		CurrentFailures: b.failures,
		LastFailureTime: b.lastFailure,
	}
}

// BreakerStats holds breaker statistics.
type BreakerStats struct {
	Name            string
	State           BreakerState
	TotalRequests   int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalRejected   int64
	CurrentFailures int
	LastFailureTime time.Time
}

// FailureRate returns the failure rate as a percentage of attempted calls.
func (s BreakerStats) FailureRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalRequests) * 100
}
