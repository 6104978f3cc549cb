// Package feed implements the four venue streaming market-data clients
// from spec.md §4.2: one asynchronous session state machine per venue,
// each decoding its own wire contract and emitting a uniform event
// stream onto either an SPSC queue (production) or a synchronous
// callback (tests).
package feed

import (
	"time"

	"github.com/xrparb/core/internal/domain"
)

// EventKind tags what an Event carries.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventTicker
	EventOrderBook
	EventTrade
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventTicker:
		return "Ticker"
	case EventOrderBook:
		return "OrderBook"
	case EventTrade:
		return "Trade"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Trade is a single decoded trade print, uniform across venues.
type Trade struct {
	Venue  domain.Venue
	Price  float64
	Qty    float64
	IsBuy  bool
	Micros int64
}

// Event is the single record type every venue client emits, whichever
// of Ticker/OrderBook/Trade/Err is populated depending on Kind. It is a
// plain value (not pool-backed) since feed throughput is orders of
// magnitude lower than the matrix/queue hot path spec.md §4.1 optimizes
// for.
type Event struct {
	Kind     EventKind
	Venue    domain.Venue
	Ticker   domain.Ticker
	Book     domain.OrderBook
	Trade    Trade
	Err      error
	At       time.Time
}

// Listener receives Events synchronously on the client's own read
// goroutine. It must never be invoked concurrently for one venue and
// must not block — spec.md §4.2's "used in single-threaded tests" path.
type Listener func(Event)

// SessionState is one node of the connection state machine from
// spec.md §4.2.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateResolving
	StateConnecting
	StateTLSHandshaking
	StateSessionHandshaking
	StateSubscribing
	StateConnected
	StateClosing
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateResolving:
		return "Resolving"
	case StateConnecting:
		return "Connecting"
	case StateTLSHandshaking:
		return "TLSHandshaking"
	case StateSessionHandshaking:
		return "SessionHandshaking"
	case StateSubscribing:
		return "Subscribing"
	case StateConnected:
		return "Connected"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// EventQueue is the narrow interface a client needs of its output
// queue — satisfied by *queue.SPSCQueue[Event] in production, and by a
// test fake in feed_test.go.
type EventQueue interface {
	Push(Event) bool
}

// Client is the common surface of the four venue feed clients.
type Client interface {
	// Start dials, subscribes, and begins emitting events in a
	// background goroutine, returning as soon as that goroutine is
	// launched; connection outcomes arrive as Connected/Error events.
	Start() error
	// Stop sets should_reconnect=false and closes the session.
	Stop()
	// Venue identifies which of the four venues this client serves.
	Venue() domain.Venue
	// State reports the client's current session state.
	State() SessionState
}
