package duration

import (
	"sync"
	"time"
)

// BreakerState represents the state of the probe circuit breaker
type BreakerState int

const (
	// BreakerClosed means probes run normally
	BreakerClosed BreakerState = iota
	// BreakerOpen means probes are skipped
	BreakerOpen
	// BreakerHalfOpen means the next probe decides whether to close again
	BreakerHalfOpen
)

// String returns the string representation of BreakerState
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker stops probing after a run of consecutive probe failures, so a
// missing media mount does not cost ProbeTimeout per item
type Breaker struct {
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive failures
// and allows a trial probe once resetTimeout has elapsed
func NewBreaker(threshold int, resetTimeout time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        BreakerClosed,
	}
}

// CanAttempt returns true if a probe may run
func (b *Breaker) CanAttempt() bool {
	state := b.State()
	return state == BreakerClosed || state == BreakerHalfOpen
}

// State returns the current state, moving Open to HalfOpen once the reset timeout has passed
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && b.now().Sub(b.lastFailure) >= b.resetTimeout {
		b.state = BreakerHalfOpen
		b.failures = 0
	}
	return b.state
}

// RecordSuccess closes the breaker and clears the failure count
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = BreakerClosed
}

// RecordFailure counts a failed probe. A failure while half-open reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
	}
}

// Failures returns the current consecutive failure count
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset returns the breaker to its initial state
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.lastFailure = time.Time{}
}
