package feed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// eventRecorder is the callback-path fake from spec.md §4.2: tests use
// the synchronous listener rather than the production queue so ordering
// within one venue is deterministic.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func waitForKind(t *testing.T, rec *eventRecorder, kind EventKind, timeout time.Duration) Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, ev := range rec.snapshot() {
			if ev.Kind == kind {
				return ev
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for event kind %s", kind)
	return Event{}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestUpbitClientEmitsConnectedThenTickerThenOrderBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// drain the subscription frame the client sends on connect
		_, _, _ = conn.ReadMessage()

		ticker := `{"type":"ticker","code":"KRW-XRP","trade_price":3100.5,"acc_trade_volume_24h":1,"timestamp":1700000000000}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(ticker))

		book := `{"type":"orderbook","code":"KRW-XRP","timestamp":1700000000000,"orderbook_units":[{"ask_price":3101,"bid_price":3099,"ask_size":10,"bid_size":12}]}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(book))

		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	rec := &eventRecorder{}
	c := NewUpbitClient([]string{"KRW-XRP"}, nil, rec.listen, zerolog.Nop())
	c.url = wsURL(srv)

	require.NoError(t, c.Start())
	defer c.Stop()

	waitForKind(t, rec, EventConnected, 2*time.Second)
	tickerEv := waitForKind(t, rec, EventTicker, 2*time.Second)
	assert.Equal(t, "KRW-XRP", tickerEv.Ticker.SymbolString())
	assert.Equal(t, 3100.5, tickerEv.Ticker.Last)

	bookEv := waitForKind(t, rec, EventOrderBook, 2*time.Second)
	assert.Equal(t, 3099.0, bookEv.Book.BestBid().Price)
	assert.Equal(t, 3101.0, bookEv.Book.BestAsk().Price)
}

func TestUpbitClientConnectedPrecedesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
		ticker := `{"type":"ticker","code":"KRW-XRP","trade_price":1,"acc_trade_volume_24h":1,"timestamp":1}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(ticker))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	rec := &eventRecorder{}
	c := NewUpbitClient([]string{"KRW-XRP"}, nil, rec.listen, zerolog.Nop())
	c.url = wsURL(srv)
	require.NoError(t, c.Start())
	defer c.Stop()

	waitForKind(t, rec, EventTicker, 2*time.Second)
	events := rec.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, EventConnected, events[0].Kind, "Connected must precede any data event in a connection epoch")
}

func TestUpbitClientReconnectsAfterDrop(t *testing.T) {
	var mu sync.Mutex
	conns := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		_, _, _ = conn.ReadMessage()
		if n == 1 {
			conn.Close() // force an immediate drop to exercise reconnect
			return
		}
		defer conn.Close()
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	rec := &eventRecorder{}
	c := NewUpbitClient([]string{"KRW-XRP"}, nil, rec.listen, zerolog.Nop())
	c.url = wsURL(srv)
	require.NoError(t, c.Start())
	defer c.Stop()

	// backoffBase is 1s; allow enough margin for the single reconnect.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := conns
		mu.Unlock()
		if got >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, conns, 2, "expected the client to reconnect after the forced drop")
}

func TestBithumbClientDropsMalformedFrameWithoutKillingSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, _, _ = conn.ReadMessage()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{not json at all`))
		good := `{"type":"ticker","content":{"symbol":"XRP_KRW","closePrice":"10","buyPrice":"9","sellPrice":"11","volume":"1","tickTimestamp":1}}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(good))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	rec := &eventRecorder{}
	c := NewBithumbClient([]string{"KRW-XRP"}, nil, rec.listen, zerolog.Nop())
	c.url = wsURL(srv)
	require.NoError(t, c.Start())
	defer c.Stop()

	ev := waitForKind(t, rec, EventTicker, 2*time.Second)
	assert.Equal(t, 10.0, ev.Ticker.Last)
	assert.EqualValues(t, 1, c.DecodeErrors())
}

func TestMEXCClientEchoesPing(t *testing.T) {
	pongReceived := make(chan int64, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for i := 0; i < 2; i++ {
			_, _, _ = conn.ReadMessage() // drain the two SUBSCRIPTION frames
		}

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"ping":7}`))

		_, data, err := conn.ReadMessage()
		if err == nil {
			var pong struct {
				Pong int64 `json:"pong"`
			}
			if err := json.Unmarshal(data, &pong); err == nil {
				pongReceived <- pong.Pong
			}
		}
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	rec := &eventRecorder{}
	c := NewMEXCClient([]string{"XRPUSDT"}, nil, rec.listen, zerolog.Nop())
	c.session.dial = func() (*websocket.Conn, error) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
		return conn, err
	}
	require.NoError(t, c.Start())
	defer c.Stop()

	select {
	case got := <-pongReceived:
		assert.EqualValues(t, 7, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pong echo")
	}
}

func TestSessionCapacityControlSignalOnFullQueue(t *testing.T) {
	q := &fakeFullQueue{}
	s := newSession(0, zerolog.Nop(), nil, nil, nil)
	s.queue = q
	s.emit(Event{Kind: EventTicker})
	assert.Equal(t, 1, q.pushes, "a full queue must drop the event, not block or error")
}

type fakeFullQueue struct{ pushes int }

func (f *fakeFullQueue) Push(Event) bool {
	f.pushes++
	return false
}
