package domain

import "time"

// MaxBookLevels bounds the number of levels kept per side, matching the
// ~20-level depth the venue feeds publish.
const MaxBookLevels = 20

// Level is a single price/quantity pair on one side of the book.
type Level struct {
	Price float64
	Qty   float64
}

// OrderBook is a bounded snapshot owned by a single venue thread and
// consumed by the strategy thread; it is never shared for mutation once
// published. Bid levels are sorted descending, ask levels ascending.
type OrderBook struct {
	Venue     Venue
	Symbol    [maxSymbolLen]byte
	SymbolLen uint8
	Bids      [MaxBookLevels]Level
	BidCount  int
	Asks      [MaxBookLevels]Level
	AskCount  int
	TimestampUnixMicro int64
}

func (b *OrderBook) SetSymbol(s string) {
	n := len(s)
	if n > maxSymbolLen {
		n = maxSymbolLen
	}
	copy(b.Symbol[:], s[:n])
	b.SymbolLen = uint8(n)
}

func (b *OrderBook) SymbolString() string {
	return string(b.Symbol[:b.SymbolLen])
}

func (b *OrderBook) Timestamp() time.Time {
	return time.UnixMicro(b.TimestampUnixMicro)
}

// BestBid returns the highest bid, or the zero Level if the book is empty.
func (b *OrderBook) BestBid() Level {
	if b.BidCount == 0 {
		return Level{}
	}
	return b.Bids[0]
}

// BestAsk returns the lowest ask, or the zero Level if the book is empty.
func (b *OrderBook) BestAsk() Level {
	if b.AskCount == 0 {
		return Level{}
	}
	return b.Asks[0]
}

// Valid checks the monotonicity, positivity, and crossed-book invariants
// from spec.md §3: bids descending, asks ascending, strictly positive
// quantities, best_bid < best_ask.
func (b *OrderBook) Valid() bool {
	for i := 0; i < b.BidCount; i++ {
		if b.Bids[i].Qty <= 0 {
			return false
		}
		if i > 0 && b.Bids[i].Price > b.Bids[i-1].Price {
			return false
		}
	}
	for i := 0; i < b.AskCount; i++ {
		if b.Asks[i].Qty <= 0 {
			return false
		}
		if i > 0 && b.Asks[i].Price < b.Asks[i-1].Price {
			return false
		}
	}
	if b.BidCount > 0 && b.AskCount > 0 {
		if b.Bids[0].Price >= b.Asks[0].Price {
			return false
		}
	}
	return true
}

// Reset zeroes the record for reuse from an object pool.
func (b *OrderBook) Reset() {
	*b = OrderBook{}
}
