package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// SimpleRateLimiter spaces calls by a random delay between minDelay and
// maxDelay. A zero delay makes Wait return immediately.
type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
	jitter     bool
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   true,
	}
}

// Wait blocks until the caller's slot. The slot is reserved under the lock and
// the sleep happens outside it, so concurrent callers queue by slot rather
// than behind each other's timers.
func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	now := time.Now()
	slot := now
	if delay := r.calculateDelay(); delay > 0 && !r.lastAction.IsZero() {
		if next := r.lastAction.Add(delay); next.After(now) {
			slot = next
		}
	}
	r.lastAction = slot
	r.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *SimpleRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

// Delays returns the current delay window.
func (r *SimpleRateLimiter) Delays() (time.Duration, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minDelay, r.maxDelay
}

func (r *SimpleRateLimiter) calculateDelay() time.Duration {
	if !r.jitter || r.maxDelay <= r.minDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	return r.minDelay + time.Duration(rand.Int63n(int64(delta)))
}

// DefaultBackoffCeiling bounds how far AdaptiveRateLimiter widens the window.
const DefaultBackoffCeiling = 2 * time.Second

// AdaptiveRateLimiter widens the delay window after repeated upstream
// failures and narrows it back towards the configured window on success. The
// widened window never exceeds the ceiling or the configured window,
// whichever is larger.
type AdaptiveRateLimiter struct {
	*SimpleRateLimiter
	baseMin       time.Duration
	baseMax       time.Duration
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
	backoffFloor  time.Duration
	ceiling       time.Duration
}

func NewAdaptiveRateLimiter(minDelay, maxDelay time.Duration) *AdaptiveRateLimiter {
	limiter := NewSimpleRateLimiter(minDelay, maxDelay)
	return &AdaptiveRateLimiter{
		SimpleRateLimiter: limiter,
		baseMin:           limiter.minDelay,
		baseMax:           limiter.maxDelay,
		maxErrorCount:     3,
		backoffFactor:     1.5,
		backoffFloor:      500 * time.Millisecond,
		ceiling:           DefaultBackoffCeiling,
	}
}

// SetCeiling changes the backoff ceiling. Non-positive values are ignored.
func (a *AdaptiveRateLimiter) SetCeiling(ceiling time.Duration) {
	if ceiling <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ceiling = ceiling
	a.minDelay = min(a.minDelay, max(a.ceiling, a.baseMin))
	a.maxDelay = min(a.maxDelay, max(a.ceiling, a.baseMax))
}

func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		a.minDelay = time.Duration(float64(a.minDelay) * 0.9)
		a.maxDelay = max(time.Duration(float64(a.maxDelay)*0.9), a.baseMax)
		if a.minDelay < a.baseMin || a.minDelay < a.backoffFloor {
			a.minDelay, a.maxDelay = a.baseMin, a.baseMax
		}
		a.successCount = 0
	}
}

func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		newMin := max(time.Duration(float64(a.minDelay)*a.backoffFactor), a.backoffFloor)
		newMax := max(time.Duration(float64(a.maxDelay)*a.backoffFactor), newMin)

		a.minDelay = min(newMin, max(a.ceiling, a.baseMin))
		a.maxDelay = min(newMax, max(a.ceiling, a.baseMax))
		a.errorCount = 0
	}
}
