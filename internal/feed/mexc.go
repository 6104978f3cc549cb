package feed

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/wire"
)

const mexcDefaultURL = "wss://wbs-api.mexc.com/ws"

type mexcSubscribeMessage struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

type mexcPingMessage struct {
	Ping int64 `json:"ping"`
}

type mexcPongMessage struct {
	Pong int64 `json:"pong"`
}

// MEXCClient streams depth and deals from MEXC's binary (protobuf-framed)
// push channels (spec.md §4.2, §6). Subscriptions are sent one message
// per channel, written back to back; the client does not wait for a
// subscription acknowledgement before sending the next one. The
// server's JSON `{"ping":N}` heartbeat must be echoed back as
// `{"pong":N}` or the connection is dropped.
type MEXCClient struct {
	*session
	symbols []string // uppercase, e.g. "XRPUSDT"
}

// NewMEXCClient builds a MEXC feed client for the given uppercase
// USDT-quoted symbols.
func NewMEXCClient(symbols []string, queue EventQueue, listener Listener, log zerolog.Logger) *MEXCClient {
	c := &MEXCClient{symbols: symbols}
	c.session = newSession(domain.MEXC, log, c.dial, c.subscribe, c.readFrame)
	c.session.queue = queue
	c.session.listener = listener
	return c
}

func (c *MEXCClient) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(mexcDefaultURL, nil)
	return conn, err
}

func (c *MEXCClient) subscribe(conn *websocket.Conn) error {
	for _, sym := range c.symbols {
		depth := mexcSubscribeMessage{
			Method: "SUBSCRIPTION",
			Params: []string{"spot@public.limit.depth.v3.api@" + sym + "@20"},
		}
		if err := writeMEXCJSON(conn, depth); err != nil {
			return err
		}
		deals := mexcSubscribeMessage{
			Method: "SUBSCRIPTION",
			Params: []string{"spot@public.deals.v3.api@" + sym},
		}
		if err := writeMEXCJSON(conn, deals); err != nil {
			return err
		}
	}
	return nil
}

func writeMEXCJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *MEXCClient) readFrame(data []byte, emit func(Event)) error {
	// MEXC interleaves JSON control frames (ping/subscription acks) with
	// binary push messages on the same socket; a JSON frame always
	// starts with '{'.
	if len(data) > 0 && data[0] == '{' {
		return c.readControlFrame(data)
	}

	env, err := wire.ParseMEXCEnvelope(data)
	if err != nil {
		c.countDecodeError()
		return nil
	}

	now := time.Now().UnixMicro()
	switch {
	case env.DepthRaw != nil:
		depth, err := wire.ParseMEXCDepth(env.DepthRaw)
		if err != nil {
			c.countDecodeError()
			return nil
		}
		var ob domain.OrderBook
		ob.Venue = domain.MEXC
		ob.SetSymbol(env.Symbol)
		ob.TimestampUnixMicro = now
		ob.BidCount = min(len(depth.Bids), domain.MaxBookLevels)
		ob.AskCount = min(len(depth.Asks), domain.MaxBookLevels)
		for i := 0; i < ob.BidCount; i++ {
			ob.Bids[i] = domain.Level{Price: depth.Bids[i].Price, Qty: depth.Bids[i].Qty}
		}
		for i := 0; i < ob.AskCount; i++ {
			ob.Asks[i] = domain.Level{Price: depth.Asks[i].Price, Qty: depth.Asks[i].Qty}
		}
		emit(Event{Kind: EventOrderBook, Book: ob})
	case env.DealsRaw != nil:
		deals, err := wire.ParseMEXCDeals(env.DealsRaw)
		if err != nil {
			c.countDecodeError()
			return nil
		}
		for _, d := range deals {
			emit(Event{Kind: EventTrade, Trade: Trade{
				Venue:  domain.MEXC,
				Price:  d.Price,
				Qty:    d.Qty,
				IsBuy:  d.IsBuy,
				Micros: now,
			}})
		}
	}
	return nil
}

// readControlFrame answers MEXC's JSON ping by writing the pong directly
// on the socket. The session's only socket writes are subscribe and this
// pong, and both run on the session's single run goroutine, so the
// direct write does not race another writer.
func (c *MEXCClient) readControlFrame(data []byte) error {
	var ping mexcPingMessage
	if err := json.Unmarshal(data, &ping); err != nil || ping.Ping == 0 {
		return nil // subscription ack or other control frame; ignore
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil
	}
	pong := mexcPongMessage{Pong: ping.Ping}
	data2, err := json.Marshal(pong)
	if err != nil {
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, data2)
}
