package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrparb/core/internal/domain"
)

func TestDecodeUpbitTicker(t *testing.T) {
	d := NewJSONDecoder()
	msg := []byte(`{"type":"ticker","code":"KRW-XRP","trade_price":3100.5,"acc_trade_volume_24h":12345.6,"timestamp":1700000000000}`)

	tk, err := d.DecodeUpbitTicker(msg)
	require.NoError(t, err)
	assert.Equal(t, "KRW-XRP", tk.SymbolString())
	assert.Equal(t, 3100.5, tk.Last)
	assert.Equal(t, int64(1700000000000000), tk.TimestampUnixMicro)
}

func TestDecodeUpbitOrderBook(t *testing.T) {
	d := NewJSONDecoder()
	msg := []byte(`{"type":"orderbook","code":"KRW-XRP","timestamp":1700000000000,
		"orderbook_units":[{"ask_price":3101,"bid_price":3099,"ask_size":10,"bid_size":12}]}`)

	ob, err := d.DecodeUpbitOrderBook(msg)
	require.NoError(t, err)
	assert.Equal(t, 1, ob.BidCount)
	assert.Equal(t, 3099.0, ob.BestBid().Price)
	assert.Equal(t, 3101.0, ob.BestAsk().Price)
}

func TestDecodeBithumbTicker(t *testing.T) {
	d := NewJSONDecoder()
	msg := []byte(`{"type":"ticker","content":{"symbol":"XRP_KRW","closePrice":"3098","buyPrice":"3097","sellPrice":"3099","volume":"500","tickTimestamp":1700000000000}}`)

	tk, err := d.DecodeBithumbTicker(msg)
	require.NoError(t, err)
	assert.Equal(t, 3098.0, tk.Last)
	assert.Equal(t, 3097.0, tk.Bid)
	assert.Equal(t, 3099.0, tk.Ask)
}

func TestDecodeBinanceCombinedTicker(t *testing.T) {
	d := NewJSONDecoder()
	msg := []byte(`{"stream":"xrpusdt@ticker","data":{"s":"XRPUSDT","c":"2.150","b":"2.149","a":"2.151","v":"90000","E":1700000000000}}`)

	tk, err := d.DecodeBinanceCombinedTicker(msg)
	require.NoError(t, err)
	assert.Equal(t, "XRPUSDT", tk.SymbolString())
	assert.Equal(t, 2.150, tk.Last)
	assert.Equal(t, 2.149, tk.Bid)
	assert.Equal(t, 2.151, tk.Ask)
}

func TestDecodeMalformedJSONIsParseError(t *testing.T) {
	d := NewJSONDecoder()
	_, err := d.DecodeUpbitTicker([]byte(`{not json`))
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrParseError, kind)
}

// --- MEXC protobuf walker ---

func appendVarintField(buf []byte, fieldNum int, wireType int, val uint64) []byte {
	tag := uint64(fieldNum<<3) | uint64(wireType)
	buf = appendVarint(buf, tag)
	buf = appendVarint(buf, val)
	return buf
}

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func appendLenDelimField(buf []byte, fieldNum int, payload []byte) []byte {
	tag := uint64(fieldNum<<3) | uint64(WireLengthDelim)
	buf = appendVarint(buf, tag)
	buf = appendVarint(buf, uint64(len(payload)))
	return append(buf, payload...)
}

func encodeMEXCLevel(price, qty string) []byte {
	var buf []byte
	buf = appendLenDelimField(buf, mexcFieldPrice, []byte(price))
	buf = appendLenDelimField(buf, mexcFieldQuantity, []byte(qty))
	return buf
}

func TestParseMEXCEnvelopeAndDepth(t *testing.T) {
	var depth []byte
	depth = appendLenDelimField(depth, mexcFieldBidLevel, encodeMEXCLevel("2.149", "100"))
	depth = appendLenDelimField(depth, mexcFieldAskLevel, encodeMEXCLevel("2.151", "80"))

	var env []byte
	env = appendLenDelimField(env, mexcFieldChannel, []byte("spot@public.limit.depth.v3.api"))
	env = appendLenDelimField(env, mexcFieldSymbol, []byte("XRPUSDT"))
	env = appendLenDelimField(env, mexcFieldDepth, depth)

	parsed, err := ParseMEXCEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, "XRPUSDT", parsed.Symbol)
	assert.NotEmpty(t, parsed.DepthRaw)

	d, err := ParseMEXCDepth(parsed.DepthRaw)
	require.NoError(t, err)
	require.Len(t, d.Bids, 1)
	require.Len(t, d.Asks, 1)
	assert.Equal(t, 2.149, d.Bids[0].Price)
	assert.Equal(t, 2.151, d.Asks[0].Price)
}

func TestParseMEXCEnvelopeToleratesUnknownFields(t *testing.T) {
	var env []byte
	env = appendVarintField(env, 99, WireVarint, 42) // unknown field, must not error
	env = appendLenDelimField(env, mexcFieldSymbol, []byte("XRPUSDT"))

	parsed, err := ParseMEXCEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, "XRPUSDT", parsed.Symbol)
}

func TestReadVarintTruncated(t *testing.T) {
	_, _, err := ReadVarint([]byte{0x80, 0x80})
	assert.ErrorIs(t, err, ErrTruncated)
}
