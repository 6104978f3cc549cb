package wire

import (
	"strconv"

	"github.com/valyala/fastjson"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/pool"
)

// decodeScratchCapacity bounds the pre-allocated Ticker/OrderBook slab
// each JSONDecoder keeps as decode scratch space; one venue I/O thread
// rarely has more than a couple of decodes in flight at once (a ticker
// message and its companion orderbook message), so this stays small.
const decodeScratchCapacity = 4

// JSONDecoder wraps a fastjson.ParserPool so each decoding goroutine
// (one per venue I/O thread) reuses its own parser instance instead of
// allocating a fresh AST on every message — the "thread-local parser"
// spec.md §4.2 calls for, and the basis for the zero-steady-state-alloc
// property in spec.md §8 item 9. tickerPool/bookPool supply the scratch
// record each Decode* method fills before copying it out to its value
// return, so the fill itself never allocates either.
type JSONDecoder struct {
	pool       fastjson.ParserPool
	tickerPool *pool.Pool[*domain.Ticker]
	bookPool   *pool.Pool[*domain.OrderBook]
}

// NewJSONDecoder builds a decoder. One instance should be shared by all
// callers on a given venue I/O thread; ParserPool itself is safe for
// concurrent use but reuse is what avoids the allocation.
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{
		tickerPool: pool.NewPool(decodeScratchCapacity, func() *domain.Ticker { return &domain.Ticker{} }),
		bookPool:   pool.NewPool(decodeScratchCapacity, func() *domain.OrderBook { return &domain.OrderBook{} }),
	}
}

// DecodeUpbitTicker parses an Upbit `"type":"ticker"` push message into a
// Ticker. Only trade-side fields are populated; bid/ask come from the
// companion orderbook channel (DecodeUpbitOrderBook).
func (d *JSONDecoder) DecodeUpbitTicker(data []byte) (domain.Ticker, error) {
	p := d.pool.Get()
	defer d.pool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return domain.Ticker{}, domain.WrapError(domain.ErrParseError, "upbit ticker decode", err)
	}

	tp, token := d.tickerPool.Get()
	defer d.tickerPool.Put(tp, token)
	tp.Reset()
	tp.Venue = domain.Upbit
	tp.SetSymbol(string(v.GetStringBytes("code")))
	tp.Last = v.GetFloat64("trade_price")
	tp.Volume24h = v.GetFloat64("acc_trade_volume_24h")
	tp.TimestampUnixMicro = v.GetInt64("timestamp") * 1000
	return *tp, nil
}

// DecodeUpbitOrderBook parses an Upbit `"type":"orderbook"` push message,
// whose best bid/ask live in orderbook_units[0].
func (d *JSONDecoder) DecodeUpbitOrderBook(data []byte) (domain.OrderBook, error) {
	p := d.pool.Get()
	defer d.pool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return domain.OrderBook{}, domain.WrapError(domain.ErrParseError, "upbit orderbook decode", err)
	}

	bp, token := d.bookPool.Get()
	defer d.bookPool.Put(bp, token)
	bp.Reset()
	bp.Venue = domain.Upbit
	bp.SetSymbol(string(v.GetStringBytes("code")))
	bp.TimestampUnixMicro = v.GetInt64("timestamp") * 1000

	units := v.GetArray("orderbook_units")
	for i, unit := range units {
		if i >= domain.MaxBookLevels {
			break
		}
		bp.Bids[i] = domain.Level{Price: unit.GetFloat64("bid_price"), Qty: unit.GetFloat64("bid_size")}
		bp.Asks[i] = domain.Level{Price: unit.GetFloat64("ask_price"), Qty: unit.GetFloat64("ask_size")}
	}
	bp.BidCount = min(len(units), domain.MaxBookLevels)
	bp.AskCount = bp.BidCount
	return *bp, nil
}

// DecodeBithumbTicker parses Bithumb's v2 `{"type":"ticker","content":{...}}`
// push message.
func (d *JSONDecoder) DecodeBithumbTicker(data []byte) (domain.Ticker, error) {
	p := d.pool.Get()
	defer d.pool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return domain.Ticker{}, domain.WrapError(domain.ErrParseError, "bithumb ticker decode", err)
	}

	content := v.Get("content")
	if content == nil {
		return domain.Ticker{}, domain.NewError(domain.ErrParseError, "bithumb ticker missing content")
	}

	tp, token := d.tickerPool.Get()
	defer d.tickerPool.Put(tp, token)
	tp.Reset()
	tp.Venue = domain.Bithumb
	tp.SetSymbol(string(content.GetStringBytes("symbol")))
	tp.Last = parseFastjsonFloatString(content, "closePrice")
	tp.Bid = parseFastjsonFloatString(content, "buyPrice")
	tp.Ask = parseFastjsonFloatString(content, "sellPrice")
	tp.Volume24h = parseFastjsonFloatString(content, "volume")
	tp.TimestampUnixMicro = content.GetInt64("tickTimestamp") * 1000
	return *tp, nil
}

// DecodeBinanceCombinedTicker parses one frame of a Binance combined
// stream (`?streams=...@ticker`) full 24hr ticker message.
func (d *JSONDecoder) DecodeBinanceCombinedTicker(data []byte) (domain.Ticker, error) {
	p := d.pool.Get()
	defer d.pool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return domain.Ticker{}, domain.WrapError(domain.ErrParseError, "binance ticker decode", err)
	}

	payload := v.Get("data")
	if payload == nil {
		payload = v // allow bare (non-combined) frames in tests
	}

	tp, token := d.tickerPool.Get()
	defer d.tickerPool.Put(tp, token)
	tp.Reset()
	tp.Venue = domain.Binance
	tp.SetSymbol(string(payload.GetStringBytes("s")))
	tp.Last = parseFastjsonFloatString(payload, "c")
	tp.Bid = parseFastjsonFloatString(payload, "b")
	tp.Ask = parseFastjsonFloatString(payload, "a")
	tp.Volume24h = parseFastjsonFloatString(payload, "v")
	tp.TimestampUnixMicro = payload.GetInt64("E") * 1000
	return *tp, nil
}

// parseFastjsonFloatString reads a field that Binance and Bithumb encode
// as a JSON string (to avoid float precision loss) and parses it as a
// float64; a plain JSON number is accepted too.
func parseFastjsonFloatString(v *fastjson.Value, key string) float64 {
	sv := v.Get(key)
	if sv == nil {
		return 0
	}
	if f, err := sv.Float64(); err == nil {
		return f
	}
	s := string(sv.GetStringBytes())
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
