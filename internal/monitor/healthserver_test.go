package monitor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestHealthServerHealthEndpoint(t *testing.T) {
	addr := freeAddr(t)
	h := NewHealthServer(addr, func() StatsSnapshot { return StatsSnapshot{} }, zerolog.Nop())
	h.Start()
	defer h.Shutdown(context.Background())

	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get("http://" + addr + "/health")
		if err == nil {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHealthServerStatsEndpointReflectsSnapshot(t *testing.T) {
	addr := freeAddr(t)
	snap := StatsSnapshot{
		FeedStates: map[string]string{"upbit": "connected", "binance": "reconnecting"},
		Executor:   ExecutorSnapshot{TotalRequests: 10, BothSuccess: 7, PartialSuccess: 2, TotalFailures: 1},
	}
	h := NewHealthServer(addr, func() StatsSnapshot { return snap }, zerolog.Nop())
	h.Start()
	defer h.Shutdown(context.Background())

	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get("http://" + addr + "/stats")
		if err == nil {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()

	var got StatsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, snap.FeedStates, got.FeedStates)
	assert.Equal(t, snap.Executor, got.Executor)
	assert.GreaterOrEqual(t, got.UptimeSeconds, 0.0)
}

func TestHealthServerStartIsNoopWithoutAddr(t *testing.T) {
	h := NewHealthServer("", func() StatsSnapshot { return StatsSnapshot{} }, zerolog.Nop())
	h.Start()
	assert.NoError(t, h.Shutdown(context.Background()))
}

func TestHealthServerShutdownBeforeStartIsNoop(t *testing.T) {
	h := NewHealthServer(freeAddr(t), func() StatsSnapshot { return StatsSnapshot{} }, zerolog.Nop())
	assert.NoError(t, h.Shutdown(context.Background()))
}
