package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const selftestYAML = `
exchanges:
  upbit:
    ws_url: wss://api.upbit.com/websocket/v1
    rest_url: https://api.upbit.com/v1
    order_rps: 8
    order_burst: 8
    query_rps: 30
    query_burst: 30
    enabled: true
  binance:
    ws_url: wss://stream.binance.com/ws
    rest_url: https://api.binance.com
    order_rps: 20
    order_burst: 40
    query_rps: 20
    query_burst: 40
    enabled: true
strategy:
  min_entry_premium_percent: 1.0
  max_entry_premium_percent: 10.0
  stop_loss_percent: 2.0
  min_order_quantity: 10
  max_order_quantity: 10000
  slippage_cap_percent: 0.5
  order_timeout: 5s
risk:
  daily_loss_limit_krw: 1000000
  max_transfer_amount: 50000
  max_concurrent_orders: 4
  kill_switch: false
symbols:
  - unified: XRP
    native:
      upbit: KRW-XRP
      binance: XRPUSDT
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunSelfTestPassesOnValidConfig(t *testing.T) {
	path := writeTempConfig(t, selftestYAML)
	require.NoError(t, runSelfTest(path))
}

func TestRunSelfTestFailsOnMissingConfig(t *testing.T) {
	require.Error(t, runSelfTest("/nonexistent/path/config.yaml"))
}
