// Package breaker implements a circuit breaker guarding calls into the
// Bitcoin data providers behind internal/btcrpc, so a provider outage does
// not turn into a cascade of slow timeouts across every withdrawal-pipeline
// pass.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// State names the circuit's current posture.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// halfOpenAllowed caps how many probe requests are let through per cooldown
// before the circuit either closes (on success) or reopens (on failure).
const halfOpenAllowed = 1

// Breaker implements the standard closed/open/half-open state machine:
// Closed lets every request through and counts consecutive failures; at
// threshold it trips to Open. Open blocks everything until cooldown
// elapses, then moves to HalfOpen. HalfOpen allows a bounded number of
// probes through — success closes it, failure reopens it.
type Breaker struct {
	mu               sync.Mutex
	state            State
	consecutiveFails int
	threshold        int
	cooldown         time.Duration
	lastFailure      time.Time
	halfOpenCount    int
}

// New creates a circuit breaker that trips after threshold consecutive
// failures and waits cooldown before probing again.
func New(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		state:     Closed,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Allow reports whether a request should be let through right now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true

	case Open:
		if time.Since(b.lastFailure) >= b.cooldown {
			slog.Debug("circuit breaker transitioning to half-open", "consecutiveFails", b.consecutiveFails)
			b.state = HalfOpen
			b.halfOpenCount = 1
			return true
		}
		return false

	case HalfOpen:
		if b.halfOpenCount < halfOpenAllowed {
			b.halfOpenCount++
			return true
		}
		return false

	default:
		return false
	}
}

// RecordSuccess resets the breaker to Closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	previous := b.state
	b.consecutiveFails = 0
	b.state = Closed
	b.halfOpenCount = 0

	if previous != Closed {
		slog.Info("circuit breaker closed after success", "previousState", previous)
	}
}

// RecordFailure records a failed call, possibly tripping the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails++
	b.lastFailure = time.Now()

	if b.state == HalfOpen {
		slog.Warn("circuit breaker reopened from half-open after failure", "consecutiveFails", b.consecutiveFails)
		b.state = Open
		b.halfOpenCount = 0
		return
	}

	if b.consecutiveFails >= b.threshold {
		slog.Warn("circuit breaker tripped to open", "consecutiveFails", b.consecutiveFails, "threshold", b.threshold)
		b.state = Open
		b.halfOpenCount = 0
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current failure streak.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFails
}
