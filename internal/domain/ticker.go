package domain

import "time"

// maxSymbolLen bounds the short-symbol field so Ticker stays fixed-size
// and safely copyable through pool-backed queues.
const maxSymbolLen = 16

// Ticker is a quote snapshot produced by exactly one venue thread and
// consumed by the strategy thread. It never outlives one processing hop:
// once the strategy has read the fields it needs, the record is returned
// to its pool.
type Ticker struct {
	Venue     Venue
	Symbol    [maxSymbolLen]byte
	SymbolLen uint8
	Last      float64
	Bid       float64
	Ask       float64
	Volume24h float64
	TimestampUnixMicro int64
}

// SetSymbol copies s into the fixed-size Symbol buffer, truncating if
// necessary. Callers should keep unified symbols short (e.g. "XRP").
func (t *Ticker) SetSymbol(s string) {
	n := len(s)
	if n > maxSymbolLen {
		n = maxSymbolLen
	}
	copy(t.Symbol[:], s[:n])
	t.SymbolLen = uint8(n)
}

// SymbolString returns the decoded symbol.
func (t *Ticker) SymbolString() string {
	return string(t.Symbol[:t.SymbolLen])
}

// Timestamp returns the quote time as a time.Time.
func (t *Ticker) Timestamp() time.Time {
	return time.UnixMicro(t.TimestampUnixMicro)
}

// Valid reports the bid<=ask invariant. A record with either side zero
// is structurally valid (e.g. a trade-only update) but must be excluded
// from spread math by the caller.
func (t *Ticker) Valid() bool {
	if t.Bid == 0 || t.Ask == 0 {
		return true
	}
	return t.Bid <= t.Ask
}

// HasSpread reports whether both sides of the book are present, i.e.
// this ticker is usable for premium computation.
func (t *Ticker) HasSpread() bool {
	return t.Bid > 0 && t.Ask > 0
}

// Reset zeroes the record for reuse from an object pool.
func (t *Ticker) Reset() {
	*t = Ticker{}
}
