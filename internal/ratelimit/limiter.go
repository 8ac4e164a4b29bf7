// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit bounds the rate of outbound calls to the paper
// repository. A single Limiter is created per process and shared by every
// component that talks to the network.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/papertrail/internal/metrics"
)

// Limiter allows at most callsPerSecond calls per second with no burst.
type Limiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	lastCall time.Time
	calls    int64
}

// New creates a Limiter. A non-positive rate disables limiting.
func New(callsPerSecond float64) *Limiter {
	r := rate.Limit(callsPerSecond)
	var interval time.Duration
	if callsPerSecond <= 0 {
		r = rate.Inf
	} else {
		interval = time.Duration(float64(time.Second) / callsPerSecond)
	}
	return &Limiter{
		limiter:  rate.NewLimiter(r, 1),
		interval: interval,
	}
}

// HoldUntilAllowed blocks until the next call is permitted without
// consuming the permit.
func (l *Limiter) HoldUntilAllowed(ctx context.Context) error {
	if l.interval == 0 {
		return nil
	}
	l.mu.Lock()
	tokens := l.limiter.TokensAt(time.Now())
	l.mu.Unlock()

	if tokens >= 1 {
		return nil
	}
	delay := time.Duration((1 - tokens) * float64(l.interval))
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// RecordCall consumes the current permit so the next call is deferred by
// one interval.
func (l *Limiter) RecordCall() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.limiter.ReserveN(now, 1)
	l.lastCall = now
	l.calls++
}

// Wait blocks until a call is allowed and records it. Concurrent callers
// are serialized so each one gets its own slot.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	l.mu.Lock()
	r := l.limiter.Reserve()
	l.lastCall = start.Add(r.Delay())
	l.calls++
	l.mu.Unlock()

	delay := r.Delay()
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			r.Cancel()
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		case <-t.C:
		}
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitWait(waited)
	}
	return nil
}

// Interval returns the minimum spacing between calls.
func (l *Limiter) Interval() time.Duration { return l.interval }

// LastCall returns the time of the most recent recorded call.
func (l *Limiter) LastCall() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCall
}

// Calls returns the number of calls recorded so far.
func (l *Limiter) Calls() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
