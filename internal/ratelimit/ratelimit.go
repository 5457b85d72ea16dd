// Package ratelimit guards the publish endpoint against a single runaway
// service token, using golang.org/x/time/rate the way the teacher's
// dispatcher backpressure configuration describes a token-rate/burst scheme
// for dispatcher streams (internal/config.BackpressureConfig), applied here
// at the HTTP edge instead of the dispatcher.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// PerToken tracks one token bucket per service token, lazily created on
// first use.
type PerToken struct {
	ratePerSecond float64
	burst         int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New constructs a per-token limiter. ratePerSecond and burst must be > 0.
func New(ratePerSecond float64, burst int) *PerToken {
	return &PerToken{
		ratePerSecond: ratePerSecond,
		burst:         burst,
		limiters:      make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a publish for the given service token may proceed
// right now. It never blocks: a denied publish must fail fast, not queue,
// since the broker's backpressure policy sheds to slow subscribers, never
// to the publisher (spec §4.5) — the same non-blocking discipline applies
// at this earlier rate-limit gate.
func (p *PerToken) Allow(token string) bool {
	return p.limiterFor(token).Allow()
}

func (p *PerToken) limiterFor(token string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[token]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.ratePerSecond), p.burst)
		p.limiters[token] = l
	}
	return l
}
