package fx

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrparb/core/internal/domain"
)

func writeFXFile(t *testing.T, rate float64, ageAgo time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usdkrw_rate.json")
	ts := time.Now().Add(-ageAgo)
	rec := fileRecord{Rate: rate, Source: "investing", Timestamp: ts.Format(time.RFC3339), TimestampUnix: float64(ts.UnixNano()) / float64(time.Second)}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadFreshRateFromFile(t *testing.T) {
	path := writeFXFile(t, 1400.5, time.Second)
	l := NewLoader(path, nil)

	rate, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Fresh)
	assert.InDelta(t, 1400.5, rate.Rate, 0.001)
}

type fakeHTTPSource struct {
	rate domain.FXRate
	err  error
}

func (f *fakeHTTPSource) FetchRate(ctx context.Context) (domain.FXRate, error) {
	return f.rate, f.err
}

func TestScenarioFStaleFXFallsBackToHTTPSource(t *testing.T) {
	path := writeFXFile(t, 1400.0, 60*time.Second) // 60s old, past the 30s bound
	fallback := &fakeHTTPSource{rate: domain.FXRate{Rate: 1401.0, Source: "http-fallback", Fresh: true}}
	l := NewLoader(path, fallback)

	rate, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http-fallback", rate.Source)
	assert.InDelta(t, 1401.0, rate.Rate, 0.001)
}

func TestStaleFXWithNoFallbackUsesCacheWithinBound(t *testing.T) {
	path := writeFXFile(t, 1400.0, time.Second)
	l := NewLoader(path, nil)

	_, err := l.Load(context.Background())
	require.NoError(t, err)

	// simulate the file going stale on a later read: overwrite with a
	// record older than the staleness bound but within the cache window
	ts := time.Now().Add(-60 * time.Second)
	stale := fileRecord{Rate: 1500.0, Source: "investing", Timestamp: ts.Format(time.RFC3339), TimestampUnix: float64(ts.UnixNano()) / float64(time.Second)}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rate, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, rate.Fresh)
	assert.InDelta(t, 1400.0, rate.Rate, 0.001)
}

func TestStaleFXBeyondCacheWindowFails(t *testing.T) {
	path := writeFXFile(t, 1400.0, time.Second)
	l := NewLoader(path, nil)
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	l.lastGoodSet = time.Now().Add(-400 * time.Second) // force the cache past cacheUsableBound
	require.NoError(t, os.WriteFile(path, []byte(`{"rate":0}`), 0o644))

	_, err = l.Load(context.Background())
	require.Error(t, err)
}

func TestRejectsNonPositiveRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usdkrw_rate.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rate":-1,"timestamp_unix":0}`), 0o644))
	l := NewLoader(path, nil)
	_, err := l.Load(context.Background())
	require.Error(t, err)
}
