// Package ratelimit implements the per-venue, per-API-class token
// buckets from spec.md §4.7. Acquisition is non-blocking (TryAcquire) on
// the hot path and blocking (Acquire) for occasional calls; a failed
// TryAcquire always surfaces as an immediate domain.ErrRateLimited,
// never a silent delay.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/xrparb/core/internal/domain"
)

// Class distinguishes order-placement calls (usually far stingier) from
// read-only query calls.
type Class int

const (
	Order Class = iota
	Query
)

func (c Class) String() string {
	if c == Order {
		return "order"
	}
	return "query"
}

// bucketKey identifies one (venue, class) rate limiter.
type bucketKey struct {
	venue domain.Venue
	class Class
}

// Limits describes a single bucket's refill rate and burst capacity.
type Limits struct {
	RefillPerSecond float64
	Burst           int
}

// Limiter owns one token bucket per (venue, class) pair, backed by
// golang.org/x/time/rate's accumulating fractional-token implementation
// (the refill computation spec.md §4.7 asks for is exactly what
// rate.Limiter already does against a monotonic clock).
type Limiter struct {
	mu       sync.RWMutex
	buckets  map[bucketKey]*rate.Limiter
}

// NewLimiter builds an empty Limiter; call Configure for each venue/class
// combination the deployment needs before use.
func NewLimiter() *Limiter {
	return &Limiter{buckets: make(map[bucketKey]*rate.Limiter)}
}

// Configure installs or replaces the bucket for (venue, class).
func (l *Limiter) Configure(venue domain.Venue, class Class, limits Limits) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[bucketKey{venue, class}] = rate.NewLimiter(rate.Limit(limits.RefillPerSecond), limits.Burst)
}

func (l *Limiter) bucket(venue domain.Venue, class Class) (*rate.Limiter, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.buckets[bucketKey{venue, class}]
	if !ok {
		return nil, domain.NewError(domain.ErrInvalidState, fmt.Sprintf("no rate limit configured for %s/%s", venue, class))
	}
	return b, nil
}

// TryAcquire is the non-blocking hot-path call. On refusal it returns
// domain.ErrRateLimited immediately; the caller never silently waits.
func (l *Limiter) TryAcquire(venue domain.Venue, class Class) error {
	b, err := l.bucket(venue, class)
	if err != nil {
		return err
	}
	if !b.Allow() {
		return domain.NewError(domain.ErrRateLimited, fmt.Sprintf("rate limited: %s/%s", venue, class))
	}
	return nil
}

// Acquire blocks until a token is available or ctx is cancelled. Used
// only for occasional, non-latency-critical calls (spec.md §4.7).
func (l *Limiter) Acquire(ctx context.Context, venue domain.Venue, class Class) error {
	b, err := l.bucket(venue, class)
	if err != nil {
		return err
	}
	if err := b.Wait(ctx); err != nil {
		return domain.WrapError(domain.ErrRateLimited, fmt.Sprintf("acquire blocked: %s/%s", venue, class), err)
	}
	return nil
}
