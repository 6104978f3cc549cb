package order

import "github.com/xrparb/core/internal/domain"

// SymbolMaster maps a unified short symbol (e.g. "XRP") to each venue's
// native trading-pair form, per spec.md §4.5. It is loaded once at
// startup from config and treated as read-only thereafter, so no lock
// is needed.
type SymbolMaster struct {
	// native[symbol][venue] -> venue-native pair string
	native map[string][domain.NumVenues]string
}

// NewSymbolMaster builds an empty master; call Add for every unified
// symbol the deployment trades.
func NewSymbolMaster() *SymbolMaster {
	return &SymbolMaster{native: make(map[string][domain.NumVenues]string)}
}

// Add registers venue-native forms for one unified symbol.
func (m *SymbolMaster) Add(symbol string, upbit, bithumb, binance, mexc string) {
	var row [domain.NumVenues]string
	row[domain.Upbit] = upbit
	row[domain.Bithumb] = bithumb
	row[domain.Binance] = binance
	row[domain.MEXC] = mexc
	m.native[symbol] = row
}

// Native returns venue's native pair form for symbol.
func (m *SymbolMaster) Native(symbol string, venue domain.Venue) (string, bool) {
	row, ok := m.native[symbol]
	if !ok {
		return "", false
	}
	s := row[venue]
	return s, s != ""
}

// DefaultSymbolMaster wires the one pair this core trades, XRP, across
// all four venues (spec.md §4.5's worked example).
func DefaultSymbolMaster() *SymbolMaster {
	m := NewSymbolMaster()
	m.Add("XRP", "KRW-XRP", "KRW-XRP", "XRPUSDT", "XRPUSDT")
	return m
}
