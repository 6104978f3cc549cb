package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrparb/core/internal/domain"
)

func TestTryAcquireRefusesImmediatelyWhenExhausted(t *testing.T) {
	l := NewLimiter()
	l.Configure(domain.Upbit, Order, Limits{RefillPerSecond: 1, Burst: 1})

	require.NoError(t, l.TryAcquire(domain.Upbit, Order))

	err := l.TryAcquire(domain.Upbit, Order)
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrRateLimited, kind)
}

func TestTryAcquireUnconfiguredBucketIsInvalidState(t *testing.T) {
	l := NewLimiter()
	err := l.TryAcquire(domain.MEXC, Query)
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.ErrInvalidState, kind)
}

func TestAcquireHonorsRateOverNConcurrentCalls(t *testing.T) {
	l := NewLimiter()
	const rps = 50.0
	l.Configure(domain.Binance, Order, Limits{RefillPerSecond: rps, Burst: 1})

	const n = 10
	start := time.Now()
	for i := 0; i < n; i++ {
		require.NoError(t, l.Acquire(context.Background(), domain.Binance, Order))
	}
	elapsed := time.Since(start)

	minExpected := time.Duration(float64(n-1)/rps*float64(time.Second)) - 20*time.Millisecond
	assert.GreaterOrEqual(t, elapsed, minExpected)
}

func TestDefaultLimitsCoverAllVenuesAndClasses(t *testing.T) {
	l := DefaultLimits()
	for _, v := range domain.AllVenues() {
		assert.NoError(t, l.TryAcquire(v, Order))
		assert.NoError(t, l.TryAcquire(v, Query))
	}
}
