// Package exec implements the dual-leg executor and recovery FSM from
// spec.md §4.4: submit both legs of a pair trade with minimum
// wall-clock skew, then, if exactly one leg succeeded, restore a flat
// position through a recovery order.
package exec

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/order"
)

// legOverhead bounds the executor's added latency above max(leg_latency)
// — the fixed cost of goroutine scheduling and result aggregation, not
// a second network round trip.
const legOverhead = 15 * time.Millisecond

// Stats are the executor's lock-free counters (spec.md §4.4
// "Statistics"), read without a lock via atomic loads.
type Stats struct {
	TotalRequests     atomic.Int64
	BothSuccess       atomic.Int64
	PartialSuccess    atomic.Int64
	TotalFailures     atomic.Int64
	CumulativeLatency atomic.Int64 // nanoseconds
	RecoveryAttempts  atomic.Int64
	RecoverySuccesses atomic.Int64
}

// Executor submits both legs of a DualOrderRequest in parallel and
// drives the recovery manager on a partial fill.
type Executor struct {
	clients map[domain.Venue]order.Client
	dryRun  bool
	log     zerolog.Logger

	recovery *RecoveryManager
	Stats    Stats
}

// NewExecutor builds an Executor over the given per-venue REST clients.
// recovery may be nil, in which case a partial fill is counted and
// returned with no remediation attempted (e.g. in tests). A recovery
// manager built without its own Stats records into this Executor's Stats.
func NewExecutor(clients map[domain.Venue]order.Client, recovery *RecoveryManager, dryRun bool, log zerolog.Logger) *Executor {
	e := &Executor{clients: clients, recovery: recovery, dryRun: dryRun, log: log}
	if recovery != nil && recovery.stats == nil {
		recovery.stats = &e.Stats
	}
	return e
}

// Execute submits both legs of req, waits for both outcomes, and — on a
// partial fill — hands the result to the recovery manager. The overall
// wall time is bounded by max(leg_latency) + legOverhead, not the sum:
// both legs are launched as goroutines before either result is awaited.
func (e *Executor) Execute(ctx context.Context, req domain.DualOrderRequest) domain.DualOrderResult {
	e.Stats.TotalRequests.Add(1)
	result := domain.DualOrderResult{CorrelationID: req.CorrelationID, StartedAt: time.Now()}

	type legOutcome struct {
		res domain.OrderResult
		err error
	}
	buyCh := make(chan legOutcome, 1)
	sellCh := make(chan legOutcome, 1)

	go func() {
		if req.BuySendDelay > 0 {
			time.Sleep(req.BuySendDelay)
		}
		res, err := e.submit(ctx, req.Buy)
		buyCh <- legOutcome{res, err}
	}()
	go func() {
		if req.SellSendDelay > 0 {
			time.Sleep(req.SellSendDelay)
		}
		res, err := e.submit(ctx, req.Sell)
		sellCh <- legOutcome{res, err}
	}()

	buyOut := <-buyCh
	sellOut := <-sellCh

	result.BuyResult, result.BuyErr = buyOut.res, buyOut.err
	result.SellResult, result.SellErr = sellOut.res, sellOut.err
	result.EndedAt = time.Now()

	e.Stats.CumulativeLatency.Add(int64(result.TotalLatency()))
	switch {
	case result.BothSuccess():
		e.Stats.BothSuccess.Add(1)
	case result.PartialFill():
		e.Stats.PartialSuccess.Add(1)
		if e.recovery != nil {
			e.recovery.Handle(ctx, req, result)
		}
	default:
		e.Stats.TotalFailures.Add(1)
	}
	return result
}

// submit dispatches one leg to its venue's client, or — in dry-run mode
// — returns a synthetic success without any network call (spec.md
// §4.4 "Dry-run mode").
func (e *Executor) submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if e.dryRun {
		return domain.OrderResult{
			Status:       domain.Filled,
			FilledQty:    req.Quantity,
			AvgFillPrice: req.Price,
			Timestamp:    time.Now(),
		}, nil
	}

	client, ok := e.clients[req.Venue]
	if !ok {
		return domain.OrderResult{Status: domain.Failed},
			domain.NewError(domain.ErrInvalidRequest, "unknown venue: "+req.Venue.String())
	}
	res, err := client.PlaceOrder(ctx, req)
	if err != nil {
		e.log.Warn().Err(err).Str("venue", req.Venue.String()).Str("symbol", req.Symbol).Msg("leg submission failed")
	}
	return res, err
}
