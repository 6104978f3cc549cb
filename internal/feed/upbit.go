package feed

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/wire"
)

const upbitDefaultURL = "wss://api.upbit.com/websocket/v1"

// upbitSubscribeEntry is one element of Upbit's subscription array: the
// first element is always a ticket, the rest are per-channel requests.
type upbitSubscribeEntry struct {
	Ticket         string   `json:"ticket,omitempty"`
	Type           string   `json:"type,omitempty"`
	Codes          []string `json:"codes,omitempty"`
	IsOnlyRealtime bool     `json:"isOnlyRealtime,omitempty"`
}

// UpbitClient streams ticker and orderbook updates from Upbit's combined
// WebSocket endpoint (spec.md §4.2).
type UpbitClient struct {
	*session
	url     string
	codes   []string // e.g. "KRW-XRP"
	decoder *wire.JSONDecoder
}

// NewUpbitClient builds an Upbit feed client for the given KRW-quoted
// market codes, publishing onto queue (production) or invoking listener
// synchronously (tests) — exactly one of the two should be non-nil.
func NewUpbitClient(codes []string, queue EventQueue, listener Listener, log zerolog.Logger) *UpbitClient {
	c := &UpbitClient{
		url:     upbitDefaultURL,
		codes:   codes,
		decoder: wire.NewJSONDecoder(),
	}
	c.session = newSession(domain.Upbit, log, c.dial, c.subscribe, c.readFrame)
	c.session.queue = queue
	c.session.listener = listener
	return c
}

func (c *UpbitClient) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	return conn, err
}

func (c *UpbitClient) subscribe(conn *websocket.Conn) error {
	payload := []upbitSubscribeEntry{
		{Ticket: uuid.NewString()},
		{Type: "ticker", Codes: c.codes},
		{Type: "orderbook", Codes: c.codes, IsOnlyRealtime: true},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *UpbitClient) readFrame(data []byte, emit func(Event)) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		c.countDecodeError()
		return nil
	}

	switch head.Type {
	case "ticker":
		t, err := c.decoder.DecodeUpbitTicker(data)
		if err != nil {
			c.countDecodeError()
			return nil
		}
		emit(Event{Kind: EventTicker, Ticker: t})
	case "orderbook":
		ob, err := c.decoder.DecodeUpbitOrderBook(data)
		if err != nil {
			c.countDecodeError()
			return nil
		}
		emit(Event{Kind: EventOrderBook, Book: ob})
	default:
		// unrecognized push type, e.g. a status frame; not an error
	}
	return nil
}
