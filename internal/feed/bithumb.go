package feed

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/wire"
)

const bithumbDefaultURL = "wss://ws-api.bithumb.com/websocket/v1"

type bithumbSubscribeEntry struct {
	Ticket string   `json:"ticket,omitempty"`
	Type   string   `json:"type,omitempty"`
	Codes  []string `json:"codes,omitempty"`
}

// BithumbClient streams ticker updates from Bithumb's v2 WebSocket API
// (spec.md §4.2), whose subscription framing mirrors Upbit's.
type BithumbClient struct {
	*session
	url     string
	codes   []string // e.g. "KRW-XRP"
	decoder *wire.JSONDecoder
}

// NewBithumbClient builds a Bithumb feed client for the given KRW-quoted
// market codes.
func NewBithumbClient(codes []string, queue EventQueue, listener Listener, log zerolog.Logger) *BithumbClient {
	c := &BithumbClient{
		url:     bithumbDefaultURL,
		codes:   codes,
		decoder: wire.NewJSONDecoder(),
	}
	c.session = newSession(domain.Bithumb, log, c.dial, c.subscribe, c.readFrame)
	c.session.queue = queue
	c.session.listener = listener
	return c
}

func (c *BithumbClient) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	return conn, err
}

func (c *BithumbClient) subscribe(conn *websocket.Conn) error {
	payload := []bithumbSubscribeEntry{
		{Ticket: "xrparb-core"},
		{Type: "ticker", Codes: c.codes},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *BithumbClient) readFrame(data []byte, emit func(Event)) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		c.countDecodeError()
		return nil
	}
	if head.Type != "ticker" {
		return nil
	}

	t, err := c.decoder.DecodeBithumbTicker(data)
	if err != nil {
		c.countDecodeError()
		return nil
	}
	emit(Event{Kind: EventTicker, Ticker: t})
	return nil
}
