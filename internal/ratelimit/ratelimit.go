// Package ratelimit wraps a per-provider token bucket so outbound calls to
// Bitcoin data providers (internal/btcrpc) stay under each provider's
// published rate limit, backing off the allowed rate when a provider starts
// failing and easing back up once it recovers.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// minRps is the floor the adaptive rate never backs off below; a provider
// that is failing entirely still gets probed at this rate so RecordSuccess
// has a chance to observe recovery.
const minRps = 1

// Limiter wraps a token bucket rate limiter for a specific provider. Its
// allowed rate adapts: RecordFailure halves it (down to minRps),
// RecordSuccess steps it back toward the configured baseline.
type Limiter struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	name       string
	baseRps    int
	currentRps int
}

// New creates a rate limiter allowing rps requests per second. Burst(1)
// spreads requests evenly across the second instead of letting a burst
// through, which is what trips provider-side limits even when the average
// rate is within bounds.
func New(name string, rps int) *Limiter {
	if rps < minRps {
		rps = minRps
	}
	slog.Debug("rate limiter created", "provider", name, "rps", rps)
	return &Limiter{
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		name:       name,
		baseRps:    rps,
		currentRps: rps,
	}
}

// Wait blocks until the limiter allows another request or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		slog.Warn("rate limiter wait cancelled", "provider", l.name, "error", err)
		return err
	}
	return nil
}

// Name returns the provider name this limiter is associated with.
func (l *Limiter) Name() string {
	return l.name
}

// RecordFailure halves the allowed rate (never below minRps), reflecting a
// provider that is struggling under the current load.
func (l *Limiter) RecordFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.currentRps / 2
	if next < minRps {
		next = minRps
	}
	if next == l.currentRps {
		return
	}
	l.currentRps = next
	l.limiter.SetLimit(rate.Limit(l.currentRps))
	slog.Debug("rate limiter backed off", "provider", l.name, "rps", l.currentRps)
}

// RecordSuccess steps the allowed rate back up by one request per second,
// capped at the configured baseline, letting a recovered provider gradually
// reclaim its full rate instead of snapping back to it immediately.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentRps >= l.baseRps {
		return
	}
	l.currentRps++
	l.limiter.SetLimit(rate.Limit(l.currentRps))
	slog.Debug("rate limiter recovering", "provider", l.name, "rps", l.currentRps)
}

// CurrentRps reports the presently allowed rate, for diagnostics.
func (l *Limiter) CurrentRps() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentRps
}
