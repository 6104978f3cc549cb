package feed

import (
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/wire"
)

const binanceCombinedBaseURL = "wss://stream.binance.com:9443/stream"

// BinanceClient streams the full 24hr ticker (`@ticker`) for one or more symbols
// over Binance's combined-stream path (spec.md §4.2). Binance heartbeats
// at the transport (WebSocket ping/pong) level, so unlike the other
// three venues it never needs an application-level heartbeat reply.
type BinanceClient struct {
	*session
	symbols []string // lowercase, e.g. "xrpusdt"
	decoder *wire.JSONDecoder
}

// NewBinanceClient builds a Binance feed client for the given lowercase
// USDT-quoted symbols.
func NewBinanceClient(symbols []string, queue EventQueue, listener Listener, log zerolog.Logger) *BinanceClient {
	c := &BinanceClient{
		symbols: symbols,
		decoder: wire.NewJSONDecoder(),
	}
	c.session = newSession(domain.Binance, log, c.dial, c.subscribe, c.readFrame)
	c.session.queue = queue
	c.session.listener = listener
	return c
}

func (c *BinanceClient) streamPath() string {
	streams := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		streams = append(streams, strings.ToLower(s)+"@ticker")
	}
	return binanceCombinedBaseURL + "?streams=" + strings.Join(streams, "/")
}

func (c *BinanceClient) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(c.streamPath(), nil)
	return conn, err
}

// subscribe is a no-op: the combined-stream path form (spec.md §4.2's
// first alternative) subscribes at dial time via the URL query string.
func (c *BinanceClient) subscribe(conn *websocket.Conn) error {
	return nil
}

func (c *BinanceClient) readFrame(data []byte, emit func(Event)) error {
	t, err := c.decoder.DecodeBinanceCombinedTicker(data)
	if err != nil {
		c.countDecodeError()
		return nil
	}
	if t.SymbolString() == "" {
		// a non-ticker combined-stream frame (e.g. depth/trade if ever
		// added to streamPath); silently skipped rather than forced
		return nil
	}
	emit(Event{Kind: EventTicker, Ticker: t})
	return nil
}
