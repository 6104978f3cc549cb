package ratelimit

import "github.com/xrparb/core/internal/domain"

// DefaultLimits returns the empirical per-venue limits from spec.md §4.7
// (Upbit 8/s order, Binance 1200/min, ...), pre-wired onto a new Limiter.
// Query-class limits are set generously relative to order-class since
// they are not latency-critical for the dual-leg path.
func DefaultLimits() *Limiter {
	l := NewLimiter()

	l.Configure(domain.Upbit, Order, Limits{RefillPerSecond: 8, Burst: 8})
	l.Configure(domain.Upbit, Query, Limits{RefillPerSecond: 30, Burst: 30})

	l.Configure(domain.Bithumb, Order, Limits{RefillPerSecond: 10, Burst: 10})
	l.Configure(domain.Bithumb, Query, Limits{RefillPerSecond: 20, Burst: 20})

	// Binance: 1200 weight/min ~= 20/s for queries; order endpoints are
	// budgeted lower, at 10/s (burst 20).
	l.Configure(domain.Binance, Order, Limits{RefillPerSecond: 10, Burst: 20})
	l.Configure(domain.Binance, Query, Limits{RefillPerSecond: 20, Burst: 40})

	l.Configure(domain.MEXC, Order, Limits{RefillPerSecond: 10, Burst: 10})
	l.Configure(domain.MEXC, Query, Limits{RefillPerSecond: 20, Burst: 20})

	return l
}
