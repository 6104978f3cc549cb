package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenueIsKRWQuoted(t *testing.T) {
	assert.True(t, Upbit.IsKRWQuoted())
	assert.True(t, Bithumb.IsKRWQuoted())
	assert.False(t, Binance.IsKRWQuoted())
	assert.False(t, MEXC.IsKRWQuoted())
}

func TestParseVenueRoundTrip(t *testing.T) {
	for _, v := range AllVenues() {
		parsed, ok := ParseVenue(v.String())
		require.True(t, ok)
		assert.Equal(t, v, parsed)
	}
	_, ok := ParseVenue("nope")
	assert.False(t, ok)
}

func TestTickerValidExcludesZeroSides(t *testing.T) {
	tk := Ticker{Bid: 0, Ask: 100}
	assert.True(t, tk.Valid())
	assert.False(t, tk.HasSpread())

	tk2 := Ticker{Bid: 100, Ask: 99}
	assert.False(t, tk2.Valid())
}

func TestOrderBookInvariants(t *testing.T) {
	var ob OrderBook
	ob.BidCount = 2
	ob.Bids[0] = Level{Price: 100, Qty: 1}
	ob.Bids[1] = Level{Price: 99, Qty: 1}
	ob.AskCount = 1
	ob.Asks[0] = Level{Price: 101, Qty: 1}
	assert.True(t, ob.Valid())

	ob.Bids[1].Price = 101 // breaks descending order
	assert.False(t, ob.Valid())
}

func TestPremiumMatrixBestOpportunityTieBreak(t *testing.T) {
	m := NewPremiumMatrix()
	m[int(Binance)][int(Upbit)] = 2.0
	m[int(MEXC)][int(Upbit)] = 2.0

	best, ok := m.BestOpportunity()
	require.True(t, ok)
	assert.Equal(t, Binance, best.Buy)
	assert.Equal(t, Upbit, best.Sell)
}

func TestPremiumMatrixAllNaNHasNoOpportunity(t *testing.T) {
	m := NewPremiumMatrix()
	_, ok := m.BestOpportunity()
	assert.False(t, ok)
	assert.True(t, math.IsNaN(m[int(Upbit)][int(Binance)]))
	assert.Equal(t, float64(0), m[int(Upbit)][int(Upbit)])
}

func TestDualOrderResultPredicates(t *testing.T) {
	r := DualOrderResult{
		BuyResult:  OrderResult{Status: Filled, FilledQty: 10},
		SellResult: OrderResult{Status: Failed},
	}
	assert.False(t, r.BothSuccess())
	assert.False(t, r.BothFailed())
	assert.True(t, r.PartialFill())
}

func TestCoreErrorWrapping(t *testing.T) {
	cause := NewError(ErrConnectionFailed, "dial failed")
	wrapped := WrapError(ErrExchangeError, "place order", cause)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrExchangeError, kind)
	assert.ErrorIs(t, error(wrapped), error(cause))
}
