package monitor

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrparb/core/internal/domain"
)

// readFrame reads one [length][kind][payload] frame off conn, mirroring
// what the external operator CLI would do on the other end.
func readFrame(t *testing.T, conn net.Conn) (MessageKind, []byte) {
	t.Helper()
	header := make([]byte, headerSize)
	_, err := io.ReadFull(conn, header)
	require.NoError(t, err)

	length := binary.BigEndian.Uint32(header[0:4])
	kind := MessageKind(header[4])

	payload := make([]byte, length)
	_, err = io.ReadFull(conn, payload)
	require.NoError(t, err)
	return kind, payload
}

func TestPublisherFramesAndSendsJSON(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			received <- conn
		}
	}()

	p := NewPublisher(ln.Addr().String(), zerolog.Nop())
	defer p.Close()

	opp := domain.Opportunity{Buy: domain.Binance, Sell: domain.Upbit, Premium: 2.5}
	err = p.Publish(KindPremiumUpdate, opp)
	require.NoError(t, err)

	var conn net.Conn
	select {
	case conn = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor server never accepted a connection")
	}
	defer conn.Close()

	kind, payload := readFrame(t, conn)
	assert.Equal(t, KindPremiumUpdate, kind)

	var got domain.Opportunity
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, opp, got)
}

func TestPublisherDropsMessageWhenServerUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() // leaves a dead local address

	p := NewPublisher(addr, zerolog.Nop())
	err = p.Publish(KindHeartbeat, map[string]any{"uptime_seconds": 1.0})
	require.Error(t, err)
	assert.EqualValues(t, 1, p.Dropped)
}

func TestPublisherReconnectsAfterConnectionDrop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for i := 0; i < 2; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	p := NewPublisher(ln.Addr().String(), zerolog.Nop())
	defer p.Close()

	require.NoError(t, p.Publish(KindHeartbeat, map[string]any{"uptime_seconds": 1.0}))
	first := <-accepted
	first.Close() // server drops the connection

	// one of the next few publishes will observe the dead socket and
	// redial; exactly which attempt surfaces the failure depends on TCP
	// buffering, so retry a handful of times rather than asserting a
	// specific call succeeds or fails
	for i := 0; i < 5; i++ {
		_ = p.Publish(KindHeartbeat, map[string]any{"uptime_seconds": float64(i)})
	}

	select {
	case second := <-accepted:
		second.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("publisher never redialed after the connection dropped")
	}
}
