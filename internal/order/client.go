// Package order implements the four venue order-submission REST clients
// from spec.md §4.5: a common {place_order, cancel_order, get_order,
// get_balance} contract, per-venue signing, symbol mapping, and status
// normalization. Every call acquires the shared per-venue rate limiter;
// place, cancel and get order also run through a per-venue circuit
// breaker.
package order

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/ratelimit"
)

// defaultTimeout is the per-call transport timeout from spec.md §5
// ("Order submission has a per-call transport timeout (default 3 s)").
const defaultTimeout = 3 * time.Second

// Client is the common contract every venue's REST client implements.
type Client interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)
	CancelOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error)
	GetOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error)
	GetBalance(ctx context.Context, coin string) (float64, error)
	Venue() domain.Venue
}

// Credentials is one venue's API key pair, loaded from config.
type Credentials struct {
	APIKey    string
	APISecret string
}

// restBase is embedded by every venue client: an http.Client bounded by
// defaultTimeout, a breaker guarding the venue's REST endpoint, and the
// shared rate limiter each call acquires against before dialing out.
type restBase struct {
	venue   domain.Venue
	baseURL string
	creds   Credentials
	http    *http.Client
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
	symbols *SymbolMaster
}

func newRestBase(venue domain.Venue, baseURL string, creds Credentials, limiter *ratelimit.Limiter, symbols *SymbolMaster) restBase {
	st := gobreaker.Settings{
		Name:        venue.String() + "-rest",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return restBase{
		venue:   venue,
		baseURL: baseURL,
		creds:   creds,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: limiter,
		breaker: gobreaker.NewCircuitBreaker(st),
		symbols: symbols,
	}
}

func (b *restBase) Venue() domain.Venue { return b.venue }

// rateGate acquires a token for class before a call proceeds; on
// refusal it returns domain.ErrRateLimited synchronously, matching
// spec.md §4.7's "never a silent delay in the data plane".
func (b *restBase) rateGate(class ratelimit.Class) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.TryAcquire(b.venue, class)
}

// guarded runs fn through the venue's circuit breaker, translating a
// gobreaker open-circuit refusal into a domain APIError.
func (b *restBase) guarded(fn func() (domain.OrderResult, error)) (domain.OrderResult, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		r, err := fn()
		if err != nil {
			return domain.OrderResult{}, err
		}
		return r, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()},
				domain.WrapError(domain.ErrAPIError, b.venue.String()+" circuit open", err)
		}
		return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
	}
	return res.(domain.OrderResult), nil
}
