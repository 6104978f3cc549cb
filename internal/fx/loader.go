// Package fx loads the USD→KRW rate the premium calculator normalizes
// offshore venue prices against. The primary source is a JSON file an
// external scraper process writes; a secondary HTTP source is queried
// when that file is stale or missing (spec.md §6 "FX rate file").
package fx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/xrparb/core/internal/domain"
)

// staleBound is the maximum age a file-sourced rate may have before a
// consumer must fall back to the HTTP source (spec.md §6, scenario F).
const staleBound = 30 * time.Second

// cacheUsableBound is the maximum age at which a previously accepted
// rate remains usable as a last-resort cache, even once it has aged
// past staleBound for fresh reads.
const cacheUsableBound = 300 * time.Second

// fileRecord mirrors the on-disk JSON shape written by the external FX
// scraper.
type fileRecord struct {
	Rate          float64 `json:"rate"`
	Source        string  `json:"source"`
	Timestamp     string  `json:"timestamp"`
	TimestampUnix float64 `json:"timestamp_unix"`
}

// HTTPSource fetches a fallback FX rate over the network when the file
// source is stale or unreadable.
type HTTPSource interface {
	FetchRate(ctx context.Context) (domain.FXRate, error)
}

// Loader reads the FX rate file and falls back to an HTTPSource,
// caching the last accepted rate for up to cacheUsableBound.
type Loader struct {
	path       string
	httpSource HTTPSource
	now        func() time.Time

	lastGood    domain.FXRate
	lastGoodSet time.Time
}

// NewLoader builds a Loader reading path, falling back to httpSource.
// httpSource may be nil if no fallback is configured.
func NewLoader(path string, httpSource HTTPSource) *Loader {
	return &Loader{path: path, httpSource: httpSource, now: time.Now}
}

// Load reads the current FX rate, preferring the file source, and
// falling back to HTTP when the file is missing, unparseable, or
// staler than staleBound. If both sources fail, the last accepted rate
// is returned (Fresh=false) as long as it is younger than
// cacheUsableBound.
func (l *Loader) Load(ctx context.Context) (domain.FXRate, error) {
	rate, err := l.fetchFromFile()
	if err == nil {
		l.lastGood = rate
		l.lastGoodSet = l.now()
		return rate, nil
	}

	if l.httpSource != nil {
		if hr, herr := l.httpSource.FetchRate(ctx); herr == nil {
			l.lastGood = hr
			l.lastGoodSet = l.now()
			return hr, nil
		}
	}

	if l.lastGoodSet.IsZero() || l.now().Sub(l.lastGoodSet) > cacheUsableBound {
		return domain.FXRate{}, err
	}
	cached := l.lastGood
	cached.Fresh = false
	return cached, nil
}

// fetchFromFile reads and validates the on-disk FX record, rejecting it
// per spec.md §6's 30-second staleness bound.
func (l *Loader) fetchFromFile() (domain.FXRate, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return domain.FXRate{}, domain.WrapError(domain.ErrConnectionFailed, "read fx rate file", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.FXRate{}, domain.WrapError(domain.ErrParseError, "parse fx rate file", err)
	}
	if rec.Rate <= 0 {
		return domain.FXRate{}, domain.NewError(domain.ErrParseError, "fx rate must be positive")
	}

	age := l.now().Sub(time.Unix(0, int64(rec.TimestampUnix*float64(time.Second))))
	if age > staleBound {
		return domain.FXRate{}, domain.NewError(domain.ErrAPIError, "FX rate data is too old")
	}

	return domain.FXRate{
		Rate:      rec.Rate,
		Source:    rec.Source,
		Timestamp: time.Unix(0, int64(rec.TimestampUnix*float64(time.Second))),
		Fresh:     true,
	}, nil
}

// InvestingHTTPSource is a minimal HTTPSource that fetches a rate from
// a configured endpoint returning the same JSON shape as the file
// source.
type InvestingHTTPSource struct {
	URL    string
	Client *http.Client
}

// FetchRate performs the HTTP fallback fetch.
func (s *InvestingHTTPSource) FetchRate(ctx context.Context) (domain.FXRate, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return domain.FXRate{}, domain.WrapError(domain.ErrInvalidRequest, "build fx http request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.FXRate{}, domain.WrapError(domain.ErrConnectionFailed, "fetch fx rate over http", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.FXRate{}, domain.WrapError(domain.ErrConnectionFailed, "read fx http response", err)
	}
	var rec fileRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return domain.FXRate{}, domain.WrapError(domain.ErrParseError, "parse fx http response", err)
	}
	if rec.Rate <= 0 {
		return domain.FXRate{}, domain.NewError(domain.ErrParseError, "fx rate must be positive")
	}
	return domain.FXRate{
		Rate:      rec.Rate,
		Source:    rec.Source,
		Timestamp: time.Unix(0, int64(rec.TimestampUnix*float64(time.Second))),
		Fresh:     true,
	}, nil
}
