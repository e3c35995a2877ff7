// Package producer wraps a weather poller with the retry, backoff and
// circuit breaker behavior of the live collection loop.
package producer

import (
	"pulseops-collector/internal/metrics"
)

// BreakerState is the circuit position. There is no half-open state,
// after the cooldown the breaker closes unconditionally.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
)

func (s BreakerState) String() string {
	if s == BreakerOpen {
		return "open"
	}
	return "closed"
}

// Breaker counts consecutive failed cycles and opens once the count
// reaches the threshold. It never probes, the owner holds it open for
// a fixed cooldown and then resets it.
type Breaker struct {
	threshold int
	failures  int
	state     BreakerState
}

// NewBreaker returns a closed breaker tripping at threshold
// consecutive failures. A threshold of zero trips on every failure.
func NewBreaker(threshold int) *Breaker {
	return &Breaker{threshold: threshold}
}

// Failure records a failed cycle and reports whether this failure
// tripped the breaker open.
func (b *Breaker) Failure() bool {
	b.failures++
	if b.state == BreakerClosed && b.failures >= b.threshold {
		b.state = BreakerOpen
		metrics.BreakerState.Set(1)
		metrics.BreakerTrips.Inc()
		return true
	}
	return false
}

// Reset closes the breaker and clears the failure count. Called after
// a healthy fetch and at the end of a cooldown.
func (b *Breaker) Reset() {
	b.failures = 0
	b.state = BreakerClosed
	metrics.BreakerState.Set(0)
}

// Open reports whether the breaker is open.
func (b *Breaker) Open() bool {
	return b.state == BreakerOpen
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	return b.failures
}

// BreakerSnapshot is a point-in-time view of the breaker for status
// reporting.
type BreakerSnapshot struct {
	State     string `json:"state"`
	Failures  int    `json:"failures"`
	Threshold int    `json:"threshold"`
}

// Snapshot returns the current breaker state for status reporting.
func (b *Breaker) Snapshot() BreakerSnapshot {
	return BreakerSnapshot{
		State:     b.state.String(),
		Failures:  b.failures,
		Threshold: b.threshold,
	}
}
